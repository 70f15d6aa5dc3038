// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/underwriter/internal/chain"
	"github.com/stretchr/testify/require"
)

func TestMemstore_SetGetDel(t *testing.T) {
	s := NewMemstore()

	_, ok, err := s.Get("missing")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set("k", []byte("v")))
	v, ok, err := s.Get("k")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("v"), v)

	require.NoError(t, s.Del("k"))
	_, ok, err = s.Get("k")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemstore_PubSub(t *testing.T) {
	s := NewMemstore()

	var got []byte
	unsub := s.On("chan-a", func(payload []byte) { got = payload })

	s.Publish("chan-a", []byte("hello"))
	require.Equal(t, []byte("hello"), got)

	unsub()
	s.Publish("chan-a", []byte("world"))
	require.Equal(t, []byte("hello"), got, "unsubscribed callback must not fire again")
}

func TestMemstore_SwapStateRoundTrip(t *testing.T) {
	s := NewMemstore()

	key := chain.SwapKey{
		ToChainID:    "1",
		ToInterface:  common.HexToAddress("0xAAAA"),
		UnderwriteID: common.HexToHash("0xBBBB"),
	}
	state := &chain.ActiveSwapState{
		Key:         key,
		Fingerprint: common.HexToHash("0xCCCC"),
		Status:      chain.StatusUnderwritten,
	}
	require.NoError(t, s.SaveSwapState(state))

	got, ok, err := s.GetActiveUnderwriteState(key)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, chain.StatusUnderwritten, got.Status)

	got2, ok, err := s.GetSwapStateByExpectedUnderwrite("1", key.ToInterface, state.Fingerprint)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, key.UnderwriteID, got2.Key.UnderwriteID)
}
