// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expirer

import (
	"context"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/queue"
	"github.com/luxfi/underwriter/internal/store"
	"github.com/luxfi/underwriter/internal/underwriter"
)

type evalStrategy struct {
	cfg     Config
	store   store.Store
	pricing underwriter.PricingOracle
	logger  log.Logger

	onReady func(ExpireOrder)
	// onDrop releases the admitted key from the in-flight tracking set. It
	// must be called directly from HandleOrder's Drop branches since a
	// dropped order never reaches OnOrderCompletion.
	onDrop func(chain.SwapKey)
}

// HandleOrder fires once the monitor's tip has reached expireAt (admission
// guarantees this by only enqueuing ready entries). It re-confirms the
// underwrite is still outstanding and old enough to be worth expiring.
func (s *evalStrategy) HandleOrder(ctx context.Context, order EvalOrder, retryCount int) (queue.Outcome[ExpireOrder], error) {
	state, found, err := s.store.GetActiveUnderwriteState(order.Key)
	if err != nil {
		return queue.Outcome[ExpireOrder]{}, err
	}
	if !found || state.Status != chain.StatusUnderwritten {
		if s.onDrop != nil {
			s.onDrop(order.Key)
		}
		return queue.Outcome[ExpireOrder]{Drop: true}, nil
	}

	age := time.Since(time.Unix(state.LastTransitionTime, 0))
	if age < s.cfg.MinUnderwriteDuration {
		if s.onDrop != nil {
			s.onDrop(order.Key)
		}
		return queue.Outcome[ExpireOrder]{Drop: true}, nil
	}

	reclaimedValue := s.pricing.ValueOf(state.ToAsset, state.Units)
	if reclaimedValue.Cmp(s.cfg.MinExpireReward) < 0 {
		if s.onDrop != nil {
			s.onDrop(order.Key)
		}
		return queue.Outcome[ExpireOrder]{Drop: true}, nil
	}

	return queue.Outcome[ExpireOrder]{Settled: true, Result: ExpireOrder{ID: order.ID, State: state}}, nil
}

func (s *evalStrategy) HandleFailedOrder(ctx context.Context, order EvalOrder, retryCount int, cause error) bool {
	return true
}

func (s *evalStrategy) OnOrderCompletion(order EvalOrder, success bool, result ExpireOrder, retryCount int) {
	if success {
		if s.onReady != nil {
			s.onReady(result)
		}
		return
	}
	if s.onDrop != nil {
		s.onDrop(order.Key)
	}
}
