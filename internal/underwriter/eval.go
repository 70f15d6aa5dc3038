// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package underwriter

import (
	"context"
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/log"
	"github.com/luxfi/underwriter/internal/monitor"
	"github.com/luxfi/underwriter/internal/queue"
	"github.com/luxfi/underwriter/internal/store"
)

// evalStrategy implements the eval-queue side of the pipeline: every drop
// path is a profitability or timing gate, never a retryable error (those
// are reserved for genuinely transient lookups).
type evalStrategy struct {
	cfg     Config
	store   store.Store
	monitor *monitor.Monitor
	pricing PricingOracle
	logger  log.Logger

	onProfitable func(UnderwriteOrder)
}

const scaleBase = 10000

func (s *evalStrategy) HandleOrder(ctx context.Context, order EvalOrder, retryCount int) (queue.Outcome[UnderwriteOrder], error) {
	ev := order.Event
	fingerprint := ev.Fingerprint()

	existing, found, err := s.store.GetSwapStateByExpectedUnderwrite(order.ToChainID, order.ToInterface, fingerprint)
	if err != nil {
		return queue.Outcome[UnderwriteOrder]{}, err
	}
	if found && existing != nil {
		return queue.Outcome[UnderwriteOrder]{Drop: true}, nil
	}

	underwriteReward := new(uint256.Int).Mul(ev.Units, uint256.NewInt(uint64(ev.UnderwriteIncentiveX16)))
	underwriteReward.Rsh(underwriteReward, 16)

	rewardValue := s.pricing.ValueOf(ev.ToAsset, underwriteReward)
	if rewardValue.Cmp(s.cfg.MinUnderwriteReward) < 0 {
		return queue.Outcome[UnderwriteOrder]{Drop: true}, nil
	}

	expectedOut := ev.MinOut
	expectedOutValue := s.pricing.ValueOf(ev.ToAsset, expectedOut)
	if !expectedOutValue.IsZero() {
		relativeScaled := new(uint256.Int).Mul(rewardValue, uint256.NewInt(scaleBase))
		relativeScaled.Div(relativeScaled, expectedOutValue)
		if relativeScaled.Cmp(uint256.NewInt(s.cfg.RelativeMinUnderwriteRewardScaled)) < 0 {
			return queue.Outcome[UnderwriteOrder]{Drop: true}, nil
		}
	}

	if ev.Units.Cmp(s.cfg.MaxUnderwriteAllowed) > 0 {
		return queue.Outcome[UnderwriteOrder]{Drop: true}, nil
	}

	currentBlock, ok := s.monitor.CurrentBlock()
	if !ok {
		return queue.Outcome[UnderwriteOrder]{}, errMonitorNotReady
	}
	expectedExpiry := ev.BlockNumber + s.cfg.ExpectedUnderwriteWindowBlocks
	if s.cfg.UnderwriteDelay+currentBlock+s.cfg.UnderwriteBlocksMargin > expectedExpiry {
		return queue.Outcome[UnderwriteOrder]{Drop: true}, nil
	}

	toAssetAllowance := new(uint256.Int).Mul(expectedOut, uint256.NewInt(scaleBase+s.cfg.AllowanceBufferScaled))
	toAssetAllowance.Div(toAssetAllowance, uint256.NewInt(scaleBase))

	collateral := new(uint256.Int)
	if s.cfg.CollateralFractionScaled > 0 {
		collateral.Mul(ev.Units, uint256.NewInt(s.cfg.CollateralFractionScaled))
		collateral.Div(collateral, uint256.NewInt(scaleBase))
	}

	out := UnderwriteOrder{
		ID:               order.ID,
		Event:            ev,
		ToChainID:        order.ToChainID,
		ToInterface:      order.ToInterface,
		ExpectedOut:      expectedOut,
		ToAssetAllowance: toAssetAllowance,
		CollateralValue:  collateral,
		deadline:         time.Now().Add(s.cfg.MaxSubmissionDelay),
	}
	return queue.Outcome[UnderwriteOrder]{Settled: true, Result: out}, nil
}

// HandleFailedOrder always retries a transient lookup failure; the queue's
// own MaxTries bounds how many attempts that gets.
func (s *evalStrategy) HandleFailedOrder(ctx context.Context, order EvalOrder, retryCount int, cause error) bool {
	return true
}

func (s *evalStrategy) OnOrderCompletion(order EvalOrder, success bool, result UnderwriteOrder, retryCount int) {
	if !success {
		return
	}
	if s.onProfitable != nil {
		s.onProfitable(result)
	}
}

type monitorNotReadyError struct{}

func (monitorNotReadyError) Error() string { return "monitor has not observed a block yet" }

var errMonitorNotReady = monitorNotReadyError{}
