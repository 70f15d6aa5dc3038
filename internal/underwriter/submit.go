// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package underwriter

import (
	"context"

	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/approval"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/queue"
	"github.com/luxfi/underwriter/internal/wallet"
)

type submitStrategy struct {
	cfg      Config
	approval *approval.Handler
	client   *wallet.Client
	logger   log.Logger

	onResult func(order UnderwriteOrder, result UnderwriteResult)
}

func (s *submitStrategy) HandleOrder(ctx context.Context, order UnderwriteOrder, retryCount int) (queue.Outcome[UnderwriteResult], error) {
	s.approval.UpdateAllowances(ctx, approval.Order{
		Interface: order.ToInterface,
		Asset:     order.Event.ToAsset,
		Allowance: order.ToAssetAllowance,
	})

	data, err := chain.UnderwriteCall{
		ToVault:                order.Event.ToVault,
		ToAsset:                order.Event.ToAsset,
		Units:                  order.Event.Units,
		MinOut:                 order.Event.MinOut,
		ToAccount:              order.Event.ToAccount,
		UnderwriteIncentiveX16: order.Event.UnderwriteIncentiveX16,
		CalldataTail:           order.Event.CalldataTail,
	}.Encode()
	if err != nil {
		return queue.Outcome[UnderwriteResult]{}, err
	}

	txReq := wallet.TxRequest{To: order.ToInterface, Data: data, Value: order.CollateralValue}
	replyCh, err := s.client.Submit(ctx, txReq, order, wallet.Options{})
	if err != nil {
		return queue.Outcome[UnderwriteResult]{}, err
	}

	future := make(chan queue.FutureResult[UnderwriteResult], 1)
	go func() {
		select {
		case reply := <-replyCh:
			if reply.SubmissionError != nil {
				future <- queue.FutureResult[UnderwriteResult]{Err: reply.SubmissionError}
				return
			}
			if reply.ConfirmationError != nil {
				future <- queue.FutureResult[UnderwriteResult]{Err: reply.ConfirmationError}
				return
			}
			future <- queue.FutureResult[UnderwriteResult]{Result: UnderwriteResult{Receipt: *reply.TxReceipt}}
		case <-ctx.Done():
			future <- queue.FutureResult[UnderwriteResult]{Err: ctx.Err()}
		}
	}()

	return queue.Outcome[UnderwriteResult]{Future: future}, nil
}

func (s *submitStrategy) HandleFailedOrder(ctx context.Context, order UnderwriteOrder, retryCount int, cause error) bool {
	return retryCount+1 < s.cfg.MaxSubmitTries
}

func (s *submitStrategy) OnOrderCompletion(order UnderwriteOrder, success bool, result UnderwriteResult, retryCount int) {
	if success {
		s.approval.RegisterAllowanceUse(order.ToInterface, order.Event.ToAsset, order.ToAssetAllowance)
		if s.onResult != nil {
			s.onResult(order, result)
		}
		return
	}
	s.approval.RegisterRequiredAllowanceDecrease(order.ToInterface, order.Event.ToAsset, order.ToAssetAllowance)
	s.logger.Warn("underwriter: submission exhausted retries", "order", order.ID, "tries", retryCount+1)
}
