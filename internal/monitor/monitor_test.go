// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package monitor

import (
	"context"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	blocks chan BlockInfo
}

func newFakeSource() *fakeSource {
	return &fakeSource{blocks: make(chan BlockInfo, 16)}
}

func (s *fakeSource) Blocks() <-chan BlockInfo { return s.blocks }
func (s *fakeSource) Run(ctx context.Context)  { <-ctx.Done() }

func TestMonitor_CurrentBlock_FalseBeforeFirstAdvance(t *testing.T) {
	m := New("1", 0, newFakeSource(), log.Root())
	_, ok := m.CurrentBlock()
	require.False(t, ok)
}

func TestMonitor_AppliesBlockDelay(t *testing.T) {
	src := newFakeSource()
	m := New("1", 3, src, log.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	src.blocks <- BlockInfo{ChainID: "1", BlockNumber: 10}
	require.Eventually(t, func() bool {
		block, ok := m.CurrentBlock()
		return ok && block == 7
	}, time.Second, time.Millisecond)
}

func TestMonitor_ZeroBeforeDelayClears(t *testing.T) {
	src := newFakeSource()
	m := New("1", 10, src, log.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	src.blocks <- BlockInfo{ChainID: "1", BlockNumber: 5}
	require.Eventually(t, func() bool {
		block, ok := m.CurrentBlock()
		return ok && block == 0
	}, time.Second, time.Millisecond)
}

func TestMonitor_IgnoresNonIncreasingAdvance(t *testing.T) {
	src := newFakeSource()
	m := New("1", 0, src, log.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	src.blocks <- BlockInfo{ChainID: "1", BlockNumber: 10}
	require.Eventually(t, func() bool {
		block, ok := m.CurrentBlock()
		return ok && block == 10
	}, time.Second, time.Millisecond)

	src.blocks <- BlockInfo{ChainID: "1", BlockNumber: 9}
	time.Sleep(20 * time.Millisecond)
	block, ok := m.CurrentBlock()
	require.True(t, ok)
	require.Equal(t, uint64(10), block)
}

func TestMonitor_BroadcastsToAttachedSubscribers(t *testing.T) {
	src := newFakeSource()
	m := New("1", 0, src, log.Root())

	port, detach := m.AttachToMonitor()
	defer detach()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	src.blocks <- BlockInfo{ChainID: "1", BlockNumber: 42}
	select {
	case msg := <-port:
		require.Equal(t, uint64(42), msg.BlockNumber)
		require.Equal(t, "1", msg.ChainID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive broadcast")
	}
}

func TestMonitor_DetachClosesPort(t *testing.T) {
	m := New("1", 0, newFakeSource(), log.Root())
	port, detach := m.AttachToMonitor()
	detach()

	_, ok := <-port
	require.False(t, ok)
}
