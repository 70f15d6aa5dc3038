// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package underwriter implements the eval -> submit pipeline that turns a
// SendAsset event into a confirmed underwrite() transaction: profitability
// gating, allowance acquisition, and outcome bookkeeping.
package underwriter

import (
	"time"

	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/luxfi/underwriter/internal/wallet"
)

// Config holds one chain's underwriter tuning, resolved once at worker
// spawn by layering chain ?? global ?? default.
type Config struct {
	OwnAddress common.Address

	MinUnderwriteReward              *uint256.Int
	RelativeMinUnderwriteRewardScaled uint64 // reward/expectedOut floor, scaled by 10000
	MaxUnderwriteAllowed             *uint256.Int

	UnderwriteDelay        uint64 // blocks to wait after the source event before evaluating
	UnderwriteBlocksMargin uint64

	// ExpectedUnderwriteWindowBlocks estimates how many blocks after the
	// source event the destination-side expiry will land, since the real
	// expiry is only known once SwapUnderwritten fires. It bounds how late
	// an underwrite submission may safely be attempted.
	ExpectedUnderwriteWindowBlocks uint64

	AllowanceBufferScaled    uint64 // e.g. 500 = expectedOut * 1.05
	CollateralFractionScaled uint64 // fraction of units escrowed as msg.value; 0 if the chain needs none
	MaxSubmissionDelay       time.Duration

	MaxPendingTransactions int
	MaxSubmitTries         int
	SubmitRetryInterval    time.Duration
}

// EvalOrder is one candidate SendAsset event awaiting profitability
// evaluation.
type EvalOrder struct {
	ID          string
	Event       chain.SendAsset
	ToChainID   string
	ToInterface common.Address
	deadline    time.Time
}

func (o EvalOrder) OrderID() string     { return o.ID }
func (o EvalOrder) Deadline() time.Time { return o.deadline }

// UnderwriteOrder is what a profitable evaluation produces: the full call
// args plus the allowance this underwrite requires.
type UnderwriteOrder struct {
	ID               string
	Event            chain.SendAsset
	ToChainID        string
	ToInterface      common.Address
	ExpectedOut      *uint256.Int
	ToAssetAllowance *uint256.Int
	CollateralValue  *uint256.Int
	deadline         time.Time
}

func (o UnderwriteOrder) OrderID() string     { return o.ID }
func (o UnderwriteOrder) Deadline() time.Time { return o.deadline }

// UnderwriteResult is the settled outcome of one underwrite submission.
type UnderwriteResult struct {
	Receipt wallet.Receipt
}
