// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expirer

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/stretchr/testify/require"
)

func TestExpiryHeap_PopReadyOrdersByExpireAt(t *testing.T) {
	h := newExpiryHeap()
	h.Insert(&scheduledExpiry{key: chain.SwapKey{UnderwriteID: common.HexToHash("0x1")}, expireAt: 30})
	h.Insert(&scheduledExpiry{key: chain.SwapKey{UnderwriteID: common.HexToHash("0x2")}, expireAt: 10})
	h.Insert(&scheduledExpiry{key: chain.SwapKey{UnderwriteID: common.HexToHash("0x3")}, expireAt: 20})

	ready := h.PopReady(15)
	require.Len(t, ready, 1)
	require.Equal(t, uint64(10), ready[0].expireAt)

	ready = h.PopReady(100)
	require.Len(t, ready, 2)
	require.Equal(t, uint64(20), ready[0].expireAt)
	require.Equal(t, uint64(30), ready[1].expireAt)
}

func TestExpiryHeap_RemoveBeforeReady(t *testing.T) {
	h := newExpiryHeap()
	key := chain.SwapKey{UnderwriteID: common.HexToHash("0x1")}
	h.Insert(&scheduledExpiry{key: key, expireAt: 30})

	require.True(t, h.Remove(key))
	require.False(t, h.Remove(key))
	require.Empty(t, h.PopReady(1000))
}

func TestExpiryHeap_InsertReplacesExisting(t *testing.T) {
	h := newExpiryHeap()
	key := chain.SwapKey{UnderwriteID: common.HexToHash("0x1")}
	h.Insert(&scheduledExpiry{key: key, expireAt: 30})
	h.Insert(&scheduledExpiry{key: key, expireAt: 5})

	require.Equal(t, 1, h.Len())
	ready := h.PopReady(10)
	require.Len(t, ready, 1)
	require.Equal(t, uint64(5), ready[0].expireAt)
}
