// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/underwriter/internal/queue"
)

// confirmBox tracks every signed attempt (the original plus any
// replacements-by-fee) for one logical order, since confirmation of either
// completes it.
type confirmBox struct {
	mu       sync.Mutex
	attempts []SignedTx
}

func (b *confirmBox) latest() SignedTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts[len(b.attempts)-1]
}

func (b *confirmBox) all() []SignedTx {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SignedTx, len(b.attempts))
	copy(out, b.attempts)
	return out
}

func (b *confirmBox) addReplacement(tx SignedTx) {
	b.mu.Lock()
	b.attempts = append(b.attempts, tx)
	b.mu.Unlock()
}

// confirmOrder is one broadcast transaction awaiting confirmations.
type confirmOrder struct {
	id            string
	messageID     string
	box           *confirmBox
	nonce         uint64
	metadata      interface{}
	replyTo       chan<- Reply
	originalTxReq TxRequest
	deadline      time.Time
	lastErr       *errBox
}

func (o confirmOrder) OrderID() string     { return o.id }
func (o confirmOrder) Deadline() time.Time { return o.deadline }

type confirmResult struct {
	receipt Receipt
}

type confirmStrategy struct {
	w *Wallet
}

// HandleOrder polls every outstanding attempt (original + replacements) for
// a receipt with enough confirmations, up to confirmationTimeout. It
// returns a Future so the queue's concurrency model handles the wait.
func (s *confirmStrategy) HandleOrder(ctx context.Context, order confirmOrder, retryCount int) (queue.Outcome[confirmResult], error) {
	future := make(chan queue.FutureResult[confirmResult], 1)

	go func() {
		deadline := time.Now().Add(s.w.cfg.ConfirmationTimeout)
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			attempts := order.box.all()
			for _, attempt := range attempts {
				receipt, ok, err := s.w.broadcaster.ReceiptFor(ctx, order.nonce, attempt.Hash)
				if err != nil {
					continue
				}
				if ok {
					ours := false
					for _, a := range attempts {
						if a.Hash == receipt.TxHash {
							ours = true
							break
						}
					}
					if !ours {
						future <- queue.FutureResult[confirmResult]{Err: NonceConsumedElsewhereError{Nonce: order.nonce, ObservedHash: receipt.TxHash.Hex()}}
						return
					}
					if receipt.Confirmations >= s.w.cfg.Confirmations {
						future <- queue.FutureResult[confirmResult]{Result: confirmResult{receipt: receipt}}
						return
					}
				}
			}

			if time.Now().After(deadline) {
				future <- queue.FutureResult[confirmResult]{Err: ConfirmationExceededError{Nonce: order.nonce, Tries: retryCount + 1}}
				return
			}

			select {
			case <-ctx.Done():
				future <- queue.FutureResult[confirmResult]{Err: ctx.Err()}
				return
			case <-ticker.C:
			}
		}
	}()

	return queue.Outcome[confirmResult]{Future: future}, nil
}

// HandleFailedOrder is reached on ConfirmationExceededError (timeout,
// trigger replacement-by-fee) or NonceConsumedElsewhereError (terminal).
func (s *confirmStrategy) HandleFailedOrder(ctx context.Context, order confirmOrder, retryCount int, cause error) bool {
	order.lastErr.set(cause)

	if _, ok := cause.(NonceConsumedElsewhereError); ok {
		if err := s.w.resyncNonce(ctx); err != nil {
			s.w.logger.Warn("wallet: nonce resync after NonceConsumedElsewhere failed", "nonce", order.nonce, "err", err)
		}
		return false
	}

	if _, ok := cause.(ConfirmationExceededError); !ok {
		return false
	}

	queried, err := s.w.broadcaster.Query(ctx)
	if err != nil {
		s.w.logger.Warn("wallet: fee requery for replacement failed, will retry without bumping", "nonce", order.nonce, "err", err)
		return true
	}
	original := order.box.latest()
	bumped := IncreasedFeeData(original.Fee, queried, s.w.cfg.Fee)

	replacement, err := s.w.broadcaster.SignAndSend(ctx, order.originalTxReq, order.nonce, bumped)
	if err != nil {
		s.w.logger.Warn("wallet: replacement broadcast failed", "nonce", order.nonce, "err", err)
		return true
	}
	order.box.addReplacement(replacement)
	return true
}

func (s *confirmStrategy) OnOrderCompletion(order confirmOrder, success bool, result confirmResult, retryCount int) {
	s.w.pendingSlots.Release(1)

	if success {
		order.replyTo <- Reply{MessageID: order.messageID, Metadata: order.metadata, TxReceipt: &result.receipt}
		return
	}

	cause := order.lastErr.get()
	if cause == nil {
		cause = ConfirmationExceededError{Nonce: order.nonce, Tries: retryCount + 1}
	}
	order.replyTo <- Reply{MessageID: order.messageID, Metadata: order.metadata, ConfirmationError: cause}
}
