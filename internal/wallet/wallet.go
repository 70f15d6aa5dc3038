// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/queue"
	"golang.org/x/sync/semaphore"
)

// Config tunes one Wallet instance. All values should already be resolved
// (chain ?? global ?? default) by the orchestrator before Wallet sees them.
type Config struct {
	MaxPendingTransactions int
	Confirmations          uint64
	ConfirmationTimeout    time.Duration
	MaxConfirmTries        int
	MaxSubmitTries         int
	SubmitRetryInterval    time.Duration
	Fee                    FeeConfig

	GasBalanceUpdateInterval time.Duration
	LowGasBalanceWarning     *uint256.Int
}

// Wallet serializes all outbound transactions for one signing key on one
// chain.
type Wallet struct {
	chainID      string
	broadcaster  Broadcaster
	cfg          Config
	logger       log.Logger

	nonceMu   sync.Mutex
	nextNonce uint64
	nonceInit bool

	pendingSlots *semaphore.Weighted
	idCounter    int64

	submitQueue  *queue.Queue[submitOrder, submitResult]
	confirmQueue *queue.Queue[confirmOrder, confirmResult]

	portsMu sync.Mutex
	ports   []chan PortRequest
}

// New constructs a Wallet. Run must be called to drive its queues.
func New(chainID string, broadcaster Broadcaster, cfg Config, logger log.Logger) *Wallet {
	if cfg.MaxPendingTransactions <= 0 {
		cfg.MaxPendingTransactions = 16
	}
	if cfg.MaxConfirmTries <= 0 {
		cfg.MaxConfirmTries = 3
	}
	if cfg.MaxSubmitTries <= 0 {
		cfg.MaxSubmitTries = 3
	}
	if cfg.ConfirmationTimeout <= 0 {
		cfg.ConfirmationTimeout = 2 * time.Minute
	}
	if cfg.SubmitRetryInterval <= 0 {
		cfg.SubmitRetryInterval = 5 * time.Second
	}

	w := &Wallet{
		chainID:      chainID,
		broadcaster:  broadcaster,
		cfg:          cfg,
		logger:       logger,
		pendingSlots: semaphore.NewWeighted(int64(cfg.MaxPendingTransactions)),
	}

	w.submitQueue = queue.New[submitOrder, submitResult]("wallet-submit-"+chainID, queue.Config{
		MaxConcurrent: cfg.MaxPendingTransactions,
		MaxTries:      cfg.MaxSubmitTries,
		RetryInterval: cfg.SubmitRetryInterval,
	}, &submitStrategy{w: w}, logger)

	w.confirmQueue = queue.New[confirmOrder, confirmResult]("wallet-confirm-"+chainID, queue.Config{
		MaxConcurrent: cfg.MaxPendingTransactions,
		MaxTries:      cfg.MaxConfirmTries,
		RetryInterval: time.Millisecond, // replacement is issued immediately in HandleFailedOrder
	}, &confirmStrategy{w: w}, logger)

	return w
}

// AttachToWallet returns a new Port for a caller to submit requests and
// receive replies on.
func (w *Wallet) AttachToWallet() Port {
	requests := make(chan PortRequest, 64)
	replies := make(chan Reply, 64)

	w.portsMu.Lock()
	w.ports = append(w.ports, requests)
	w.portsMu.Unlock()

	go w.pumpPort(requests, replies)

	return Port{Requests: requests, Replies: replies}
}

func (w *Wallet) pumpPort(requests chan PortRequest, replies chan Reply) {
	for req := range requests {
		id := fmt.Sprintf("%s-%d", w.chainID, atomic.AddInt64(&w.idCounter, 1))
		w.submitQueue.AddOrders(newSubmitOrder(id, req.MessageID, req.TxRequest, req.Metadata, req.Options, replies, time.Time{}))
	}
}

// Run drives the submit and confirm queues until ctx is cancelled.
func (w *Wallet) Run(ctx context.Context) {
	go w.submitQueue.Run(ctx)
	go w.confirmQueue.Run(ctx)
	go w.watchBalance(ctx)
	<-ctx.Done()
}

func (w *Wallet) watchBalance(ctx context.Context) {
	if w.cfg.GasBalanceUpdateInterval <= 0 || w.cfg.LowGasBalanceWarning == nil {
		return
	}
	ticker := time.NewTicker(w.cfg.GasBalanceUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bal, err := w.broadcaster.BalanceAt(ctx)
			if err != nil {
				w.logger.Warn("wallet: balance check failed", "chain", w.chainID, "err", err)
				continue
			}
			if bal.Cmp(w.cfg.LowGasBalanceWarning) < 0 {
				w.logger.Warn("wallet: native balance below warning threshold", "chain", w.chainID, "balance", bal.String())
			}
		}
	}
}

// nextAssignedNonce assigns the next nonce for a new submission. nonceHead
// <= nextNonce always; nextNonce increments on every submission including
// retries at a new nonce.
func (w *Wallet) nextAssignedNonce(ctx context.Context) (uint64, error) {
	w.nonceMu.Lock()
	defer w.nonceMu.Unlock()
	if !w.nonceInit {
		n, err := w.broadcaster.NonceAt(ctx)
		if err != nil {
			return 0, err
		}
		w.nextNonce = n
		w.nonceInit = true
	}
	n := w.nextNonce
	w.nextNonce++
	return n, nil
}

// resyncNonce refreshes nextNonce from the chain after a nonce-taken error.
func (w *Wallet) resyncNonce(ctx context.Context) error {
	w.nonceMu.Lock()
	defer w.nonceMu.Unlock()
	n, err := w.broadcaster.NonceAt(ctx)
	if err != nil {
		return err
	}
	if n > w.nextNonce {
		w.nextNonce = n
	}
	w.nonceInit = true
	return nil
}

// Size reports the combined submit+confirm backlog, used by the
// orchestrator's status log and its wallet-pending metric.
func (w *Wallet) Size() int {
	return w.submitQueue.Size() + w.confirmQueue.Size()
}

// newConfirmBox is a helper constructor used by submitStrategy when handing a
// freshly broadcast transaction to the confirm queue.
func newConfirmBox(tx SignedTx) *confirmBox {
	return &confirmBox{attempts: []SignedTx{tx}}
}
