// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package chain holds the typed cross-chain swap events, identifiers, and
// ABI call encoders the underwriter and expirer pipelines operate on.
// Event decoding off the wire is the external listener's job, not this
// package's; it only defines the shapes both sides agree on.
package chain

import (
	"github.com/holiman/uint256"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/crypto"
)

// UnderwriteStatus is the lifecycle state of one active swap underwrite.
type UnderwriteStatus int

const (
	StatusPending UnderwriteStatus = iota
	StatusUnderwritten
	StatusFulfilled
	StatusExpired
)

func (s UnderwriteStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusUnderwritten:
		return "underwritten"
	case StatusFulfilled:
		return "fulfilled"
	case StatusExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// SwapKey identifies one active underwrite: (toChainId, toInterface, underwriteId).
type SwapKey struct {
	ToChainID   string
	ToInterface common.Address
	UnderwriteID common.Hash
}

// SendAsset is the source-chain event that starts a swap.
type SendAsset struct {
	FromChainID string
	FromVault   common.Address
	ChannelID   common.Hash
	ToVault     common.Address
	ToAccount   common.Address
	FromAsset   common.Address
	ToAsset     common.Address
	FromAmount  *uint256.Int
	Fee         *uint256.Int
	MinOut      *uint256.Int
	Units       *uint256.Int
	BlockNumber uint64
	BlockHash   common.Hash
	BlockTimestamp int64

	UnderwriteIncentiveX16 uint16
	CalldataTail           []byte
}

// Fingerprint computes the SwapIdentifier: keccak256(abi(toAccount, units,
// fromAmount-fee, fromAsset, blockNumber)).
func (e *SendAsset) Fingerprint() common.Hash {
	net := new(uint256.Int).Sub(e.FromAmount, e.Fee)
	packed, err := packFingerprint(e.ToAccount, e.Units, net, e.FromAsset, e.BlockNumber)
	if err != nil {
		// fingerprintArgs is a fixed address/uint tuple; packing well-formed
		// SendAsset fields cannot fail.
		panic("chain: fingerprint abi pack: " + err.Error())
	}
	return crypto.Keccak256Hash(packed)
}

// SwapUnderwritten is emitted by the destination interface once an
// underwriter fronts the payout.
type SwapUnderwritten struct {
	ToChainID    string
	ToInterface  common.Address
	UnderwriteID common.Hash
	Underwriter  common.Address
	Expiry       uint64
	BlockTimestamp int64
}

// SwapUnderwriteComplete is emitted when the underlying message arrives and
// the underwrite is fulfilled.
type SwapUnderwriteComplete struct {
	ToChainID    string
	ToInterface  common.Address
	UnderwriteID common.Hash
}

// ExpireUnderwrite mirrors the on-chain event of the same name: some party
// has reclaimed the collateral for a stale underwrite.
type ExpireUnderwrite struct {
	ToChainID    string
	ToInterface  common.Address
	UnderwriteID common.Hash
}

// ActiveSwapState is the full per-underwrite record tracked in the Store.
type ActiveSwapState struct {
	Key SwapKey

	FromChainID  string
	FromVault    common.Address
	ChannelID    common.Hash
	ToVault      common.Address
	ToAccount    common.Address
	FromAsset    common.Address
	ToAsset      common.Address
	FromAmount   *uint256.Int
	MinOut       *uint256.Int
	Units        *uint256.Int
	Fee          *uint256.Int
	UnderwriteIncentiveX16 uint16
	CalldataTail []byte

	Fingerprint   common.Hash
	ExpiryBlock   uint64

	Status             UnderwriteStatus
	LastTransitionBlock uint64
	LastTransitionTime  int64

	Underwriter common.Address
}
