// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	calls  int64
	number uint64
	err    error
}

func (r *fakeReader) LatestHeader(context.Context) (uint64, common.Hash, int64, error) {
	atomic.AddInt64(&r.calls, 1)
	return r.number, common.Hash{}, 0, r.err
}

func TestPollSource_PublishesOnEachTick(t *testing.T) {
	reader := &fakeReader{number: 100}
	src := NewPollSource("1", reader, time.Millisecond, log.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)

	select {
	case block := <-src.Blocks():
		require.Equal(t, uint64(100), block.BlockNumber)
		require.Equal(t, "1", block.ChainID)
	case <-time.After(time.Second):
		t.Fatal("no block published")
	}
}

func TestPollSource_SkipsOnReaderError(t *testing.T) {
	reader := &fakeReader{err: errors.New("rpc down")}
	src := NewPollSource("1", reader, time.Millisecond, log.Root())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go src.Run(ctx)

	select {
	case <-src.Blocks():
		t.Fatal("should not publish on reader error")
	case <-time.After(50 * time.Millisecond):
	}
	require.Greater(t, atomic.LoadInt64(&reader.calls), int64(0))
}

func TestPollSource_ClosesChannelOnContextCancel(t *testing.T) {
	reader := &fakeReader{number: 1}
	src := NewPollSource("1", reader, time.Millisecond, log.Root())

	ctx, cancel := context.WithCancel(context.Background())
	go src.Run(ctx)
	<-src.Blocks()
	cancel()

	require.Eventually(t, func() bool {
		_, ok := <-src.Blocks()
		return !ok
	}, time.Second, time.Millisecond)
}

func TestNewPollSource_DefaultsInterval(t *testing.T) {
	src := NewPollSource("1", &fakeReader{}, 0, log.Root())
	require.Equal(t, DefaultPollInterval, src.interval)
}
