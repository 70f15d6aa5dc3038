// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package expirer implements the symmetric counterpart to the underwriter
// pipeline: it schedules a reclaim of an underwrite's locked collateral
// once the destination message has had its chance to arrive and didn't.
package expirer

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/wallet"
)

// Config holds one chain's expirer tuning, resolved chain ?? global ??
// default at worker spawn.
type Config struct {
	OwnAddress       common.Address
	ExpireBlocksMargin uint64

	// MinUnderwriteDuration is a floor on how long an underwrite must have
	// been outstanding before this worker will expire it, guarding against
	// a misconfigured margin racing to reclaim a just-issued underwrite.
	// Enforced at >= 30 minutes regardless of configured value.
	MinUnderwriteDuration time.Duration

	// MinExpireReward is the profitability floor for calling
	// expireUnderwrite: the reclaimed collateral's value, priced through the
	// same PricingOracle the underwriter pipeline uses, must meet or exceed
	// this before a worker will spend gas reclaiming it. Mirrors
	// underwriter.Config.MinUnderwriteReward.
	MinExpireReward *uint256.Int

	MaxSubmitTries      int
	SubmitRetryInterval time.Duration
}

const minAllowedUnderwriteDuration = 30 * time.Minute

func (c Config) withFloor() Config {
	if c.MinUnderwriteDuration < minAllowedUnderwriteDuration {
		c.MinUnderwriteDuration = minAllowedUnderwriteDuration
	}
	if c.MinExpireReward == nil {
		c.MinExpireReward = uint256.NewInt(0)
	}
	if c.MaxSubmitTries <= 0 {
		c.MaxSubmitTries = 1 // submission failures are not retried, per design
	}
	if c.SubmitRetryInterval <= 0 {
		c.SubmitRetryInterval = 5 * time.Second
	}
	return c
}

// scheduledExpiry is one admitted entry awaiting its expireAt block.
type scheduledExpiry struct {
	key            chain.SwapKey
	expireAt       uint64
	underwriter    common.Address
	swapBlockTime  int64
	heapIndex      int
}

// EvalOrder fires once the monitor's broadcast tip reaches expireAt.
type EvalOrder struct {
	ID       string
	Key      chain.SwapKey
	deadline time.Time
}

func (o EvalOrder) OrderID() string     { return o.ID }
func (o EvalOrder) Deadline() time.Time { return o.deadline }

// ExpireOrder carries the full expireUnderwrite() call tuple.
type ExpireOrder struct {
	ID       string
	State    *chain.ActiveSwapState
	deadline time.Time
}

func (o ExpireOrder) OrderID() string     { return o.ID }
func (o ExpireOrder) Deadline() time.Time { return o.deadline }

// ExpireResult is the settled outcome of one expireUnderwrite submission.
type ExpireResult struct {
	Receipt wallet.Receipt
}
