// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expirer

import (
	"context"

	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/queue"
	"github.com/luxfi/underwriter/internal/wallet"
)

type submitStrategy struct {
	client *wallet.Client
	logger log.Logger

	onResult func(order ExpireOrder, result ExpireResult)
	// release drops the order's key from the in-flight tracking set,
	// called on every settlement regardless of outcome.
	release func(key chain.SwapKey)
}

func (s *submitStrategy) HandleOrder(ctx context.Context, order ExpireOrder, retryCount int) (queue.Outcome[ExpireResult], error) {
	state := order.State
	data, err := chain.EncodeExpire(chain.ExpireUnderwriteCall{
		ToVault:                state.ToVault,
		ToAsset:                state.ToAsset,
		Units:                  state.Units,
		MinOut:                 state.MinOut,
		ToAccount:              state.ToAccount,
		UnderwriteIncentiveX16: state.UnderwriteIncentiveX16,
		CalldataTail:           state.CalldataTail,
	})
	if err != nil {
		return queue.Outcome[ExpireResult]{}, err
	}

	txReq := wallet.TxRequest{To: state.Key.ToInterface, Data: data}
	replyCh, err := s.client.Submit(ctx, txReq, order, wallet.Options{})
	if err != nil {
		return queue.Outcome[ExpireResult]{}, err
	}

	future := make(chan queue.FutureResult[ExpireResult], 1)
	go func() {
		select {
		case reply := <-replyCh:
			if reply.SubmissionError != nil {
				future <- queue.FutureResult[ExpireResult]{Err: reply.SubmissionError}
				return
			}
			if reply.ConfirmationError != nil {
				future <- queue.FutureResult[ExpireResult]{Err: reply.ConfirmationError}
				return
			}
			future <- queue.FutureResult[ExpireResult]{Result: ExpireResult{Receipt: *reply.TxReceipt}}
		case <-ctx.Done():
			future <- queue.FutureResult[ExpireResult]{Err: ctx.Err()}
		}
	}()

	return queue.Outcome[ExpireResult]{Future: future}, nil
}

// HandleFailedOrder never retries: repeatedly bumping fees to win a race
// against another party's expireUnderwrite call is not worth it.
func (s *submitStrategy) HandleFailedOrder(ctx context.Context, order ExpireOrder, retryCount int, cause error) bool {
	return false
}

func (s *submitStrategy) OnOrderCompletion(order ExpireOrder, success bool, result ExpireResult, retryCount int) {
	if s.release != nil {
		s.release(order.State.Key)
	}
	if success {
		if s.onResult != nil {
			s.onResult(order, result)
		}
		return
	}
	s.logger.Warn("expirer: expireUnderwrite submission failed, not retrying", "underwriteId", order.State.Key.UnderwriteID)
}
