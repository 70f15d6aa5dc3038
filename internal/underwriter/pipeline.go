// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package underwriter

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/approval"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/monitor"
	"github.com/luxfi/underwriter/internal/queue"
	"github.com/luxfi/underwriter/internal/store"
	"github.com/luxfi/underwriter/internal/wallet"
)

// sendAssetMessage is the wire shape the listener publishes on
// store.ChannelSendAsset.
type sendAssetMessage struct {
	ToChainID   string         `json:"toChainId"`
	ToInterface common.Address `json:"toInterface"`
	Event       chain.SendAsset `json:"event"`
}

type pendingEvent struct {
	toChainID   string
	toInterface common.Address
	event       chain.SendAsset
}

// Pipeline is one chain's underwriter worker: subscribes to SendAsset,
// admits events into the eval queue once they clear the delay and capacity
// gates, and drives eval -> submit to completion.
type Pipeline struct {
	chainID string
	cfg     Config
	store   store.Store
	monitor *monitor.Monitor
	logger  log.Logger

	eval   *queue.Queue[EvalOrder, UnderwriteOrder]
	submit *queue.Queue[UnderwriteOrder, UnderwriteResult]
	client *wallet.Client

	mu      sync.Mutex
	pending []pendingEvent

	idCounter int64
}

// New wires a full underwriter pipeline for one chain.
func New(chainID string, cfg Config, st store.Store, mon *monitor.Monitor, walletPort wallet.Port, approvalHandler *approval.Handler, pricing PricingOracle, logger log.Logger) *Pipeline {
	if cfg.MaxSubmitTries <= 0 {
		cfg.MaxSubmitTries = 3
	}
	if cfg.SubmitRetryInterval <= 0 {
		cfg.SubmitRetryInterval = 5 * time.Second
	}

	p := &Pipeline{
		chainID: chainID,
		cfg:     cfg,
		store:   st,
		monitor: mon,
		logger:  logger,
		client:  wallet.NewClient(walletPort, "underwrite-"+chainID),
	}

	es := &evalStrategy{cfg: cfg, store: st, monitor: mon, pricing: pricing, logger: logger}
	p.eval = queue.New[EvalOrder, UnderwriteOrder]("underwriter-eval-"+chainID, queue.Config{
		MaxConcurrent: cfg.MaxPendingTransactions,
		MaxTries:      5,
		RetryInterval: time.Second,
	}, es, logger)

	ss := &submitStrategy{cfg: cfg, approval: approvalHandler, client: p.client, logger: logger}
	p.submit = queue.New[UnderwriteOrder, UnderwriteResult]("underwriter-submit-"+chainID, queue.Config{
		MaxConcurrent: cfg.MaxPendingTransactions,
		MaxTries:      cfg.MaxSubmitTries,
		RetryInterval: cfg.SubmitRetryInterval,
	}, ss, logger)
	es.onProfitable = func(order UnderwriteOrder) { p.submit.AddOrders(order) }

	st.On(store.ChannelSendAsset, p.onSendAsset)

	return p
}

func (p *Pipeline) onSendAsset(payload []byte) {
	var msg sendAssetMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		p.logger.Error("underwriter: malformed SendAsset payload", "chain", p.chainID, "err", err)
		return
	}
	if msg.ToChainID != p.chainID {
		return
	}
	p.mu.Lock()
	p.pending = append(p.pending, pendingEvent{toChainID: msg.ToChainID, toInterface: msg.ToInterface, event: msg.Event})
	p.mu.Unlock()
}

// Run drives the eval/submit queues, the wallet client pump, and the
// admission gate until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	go p.client.Run(ctx)
	go p.eval.Run(ctx)
	go p.submit.Run(ctx)

	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.admit()
		}
	}
}

// admit moves pre-queued events into the eval queue once capacity allows
// and the configured underwrite delay has elapsed.
func (p *Pipeline) admit() {
	currentBlock, ok := p.monitor.CurrentBlock()
	if !ok {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	var remaining []pendingEvent
	for _, ev := range p.pending {
		if p.eval.Size()+p.submit.Size() >= p.cfg.MaxPendingTransactions {
			remaining = append(remaining, ev)
			continue
		}
		if currentBlock < ev.event.BlockNumber+p.cfg.UnderwriteDelay {
			remaining = append(remaining, ev)
			continue
		}
		id := fmt.Sprintf("eval-%s-%d", p.chainID, atomic.AddInt64(&p.idCounter, 1))
		p.eval.AddOrders(EvalOrder{ID: id, Event: ev.event, ToChainID: ev.toChainID, ToInterface: ev.toInterface})
	}
	p.pending = remaining
}

// Size reports the combined eval+submit backlog for status logging.
func (p *Pipeline) Size() int {
	return p.eval.Size() + p.submit.Size()
}
