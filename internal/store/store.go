// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package store is a thin key/value + pub/sub facade shared with the
// external event listener. JSON serialization of values is the caller's
// responsibility; Store only moves bytes and fans out channel events.
package store

import (
	"strings"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/underwriter/internal/chain"
)

// Channel names the core subscribes to or publishes on.
const (
	ChannelSendAsset              = "onSendAsset"
	ChannelSwapUnderwritten       = "onSwapUnderwritten"
	ChannelSwapUnderwriteComplete = "onSwapUnderwriteComplete"
	ChannelExpireUnderwrite       = "onExpireUnderwrite"
)

// Store is the interface the core consumes; it is implemented by an
// embedded key/value backend shared with the external event listener, or,
// for this repository, by the in-memory Memstore in memstore.go.
type Store interface {
	Set(key string, value []byte) error
	Get(key string) ([]byte, bool, error)
	Del(key string) error

	// On subscribes cb to a named channel; Publish broadcasts payload to
	// every subscriber of channel. Delivery is at-least-once, unordered
	// across subscribers.
	On(channel string, cb func(payload []byte)) (unsubscribe func())
	Publish(channel string, payload []byte)

	GetActiveUnderwriteState(key chain.SwapKey) (*chain.ActiveSwapState, bool, error)
	// GetSwapStateByExpectedUnderwrite looks up a swap that has not yet been
	// underwritten on-chain, indexed by the fingerprint the destination
	// contract is expected to commit when it mints an underwriteId.
	GetSwapStateByExpectedUnderwrite(toChainID string, toInterface common.Address, fingerprint common.Hash) (*chain.ActiveSwapState, bool, error)
	SaveSwapState(state *chain.ActiveSwapState) error
}

// swapStateKey builds the lowercase namespaced key for an active swap
// state record: (toChainId, toInterface, underwriteId).
func swapStateKey(key chain.SwapKey) string {
	return "swapstate:" + strings.ToLower(key.ToChainID) + ":" +
		strings.ToLower(key.ToInterface.Hex()) + ":" +
		strings.ToLower(key.UnderwriteID.Hex())
}

// expectedUnderwriteKey indexes a not-yet-underwritten swap by the
// fingerprint the destination contract is expected to commit, so the
// underwriter can look up the full swap details once it observes the
// underwriteId on-chain.
func expectedUnderwriteKey(toChainID string, toInterface common.Address, fingerprint common.Hash) string {
	return "expected:" + strings.ToLower(toChainID) + ":" +
		strings.ToLower(toInterface.Hex()) + ":" +
		strings.ToLower(fingerprint.Hex())
}
