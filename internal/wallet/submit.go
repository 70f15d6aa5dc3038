// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/underwriter/internal/queue"
)

// errBox threads the terminal cause of a rejection from HandleFailedOrder
// into OnOrderCompletion, whose signature (matching the processing queue's
// contract) carries no error of its own.
type errBox struct {
	mu  sync.Mutex
	err error
}

func (b *errBox) set(err error) {
	b.mu.Lock()
	b.err = err
	b.mu.Unlock()
}

func (b *errBox) get() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// submitOrder is one PortRequest in flight through the submit
// queue.
type submitOrder struct {
	id        string
	messageID string
	txRequest TxRequest
	metadata  interface{}
	options   Options
	replyTo   chan<- Reply
	deadline  time.Time
	lastErr   *errBox
}

func newSubmitOrder(id, messageID string, txRequest TxRequest, metadata interface{}, options Options, replyTo chan<- Reply, deadline time.Time) submitOrder {
	return submitOrder{
		id: id, messageID: messageID, txRequest: txRequest, metadata: metadata,
		options: options, replyTo: replyTo, deadline: deadline, lastErr: &errBox{},
	}
}

func (o submitOrder) OrderID() string     { return o.id }
func (o submitOrder) Deadline() time.Time { return o.deadline }

// submitResult is what a successful broadcast hands to OnOrderCompletion;
// the actual caller-facing Reply for a confirmed transaction is emitted by
// the confirm queue, not here.
type submitResult struct {
	tx SignedTx
}

type submitStrategy struct {
	w *Wallet
}

func (s *submitStrategy) HandleOrder(ctx context.Context, order submitOrder, retryCount int) (queue.Outcome[submitResult], error) {
	if err := s.w.pendingSlots.Acquire(ctx, 1); err != nil {
		return queue.Outcome[submitResult]{}, err
	}

	nonce, err := s.w.nextAssignedNonce(ctx)
	if err != nil {
		s.w.pendingSlots.Release(1)
		return queue.Outcome[submitResult]{}, SubmissionError{Cause: err}
	}

	queried, err := s.w.broadcaster.Query(ctx)
	if err != nil {
		s.w.pendingSlots.Release(1)
		return queue.Outcome[submitResult]{}, SubmissionError{Cause: err}
	}
	fee := ComputeFeeData(queried, s.w.cfg.Fee, false)

	tx, err := s.w.broadcaster.SignAndSend(ctx, order.txRequest, nonce, fee)
	if err != nil {
		s.w.pendingSlots.Release(1)
		if isNonceTaken(err) {
			if resyncErr := s.w.resyncNonce(ctx); resyncErr != nil {
				return queue.Outcome[submitResult]{}, SubmissionError{Cause: resyncErr, Unrecoverable: true}
			}
			if !order.options.retryOnNonceTaken() {
				return queue.Outcome[submitResult]{}, SubmissionError{Cause: err, Unrecoverable: true}
			}
		}
		return queue.Outcome[submitResult]{}, SubmissionError{Cause: err}
	}

	s.w.confirmQueue.AddOrders(confirmOrder{
		id:            order.id,
		messageID:     order.messageID,
		box:           newConfirmBox(tx),
		nonce:         nonce,
		metadata:      order.metadata,
		replyTo:       order.replyTo,
		originalTxReq: order.txRequest,
		deadline:      order.deadline,
		lastErr:       &errBox{},
	})

	return queue.Outcome[submitResult]{Settled: true, Result: submitResult{tx: tx}}, nil
}

func (s *submitStrategy) HandleFailedOrder(ctx context.Context, order submitOrder, retryCount int, cause error) bool {
	order.lastErr.set(cause)
	if subErr, ok := cause.(SubmissionError); ok && subErr.Unrecoverable {
		return false
	}
	return true
}

func (s *submitStrategy) OnOrderCompletion(order submitOrder, success bool, result submitResult, retryCount int) {
	if success {
		return // the confirm queue now owns the caller-facing reply
	}
	cause := order.lastErr.get()
	if cause == nil {
		cause = SubmissionError{Cause: errSubmissionRetriesExhausted}
	}
	order.replyTo <- Reply{MessageID: order.messageID, Metadata: order.metadata, SubmissionError: cause}
}

var errSubmissionRetriesExhausted = submissionRetriesExhaustedError{}

type submissionRetriesExhaustedError struct{}

func (submissionRetriesExhaustedError) Error() string { return "submission retries exhausted" }
