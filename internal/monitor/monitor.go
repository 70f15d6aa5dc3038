// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package monitor broadcasts per-chain block-tip updates to any number of
// subscribers. It multiplexes a single upstream source (RPC polling or a
// relayer WebSocket feed) across many attached ports; subscribers never
// reply, they only receive status messages.
package monitor

import (
	"context"
	"sync"
	"time"

	"github.com/luxfi/geth/common"
	"github.com/luxfi/log"
)

// BlockInfo is the message pushed to every attached subscriber on a tip
// advance.
type BlockInfo struct {
	ChainID     string
	BlockNumber uint64
	BlockHash   common.Hash
	Timestamp   int64
}

// Source is the upstream feed a Monitor multiplexes: either a poller or a
// relayer WebSocket client. It must push strictly-increasing observed
// heights (pre block-delay subtraction) on Blocks and close it on
// permanent failure.
type Source interface {
	Blocks() <-chan BlockInfo
	Run(ctx context.Context)
}

// Port is the unidirectional monitor -> subscriber channel handed out by
// AttachToMonitor. Subscribers read it; they have no write side.
type Port = <-chan BlockInfo

// Monitor is one per chain. It owns the broadcaster loop and the upstream
// Source.
type Monitor struct {
	chainID    string
	blockDelay uint64
	source     Source
	logger     log.Logger

	mu          sync.Mutex
	subscribers map[chan BlockInfo]struct{}
	lastBroadcast uint64
	lastBroadcastSet bool
}

// New constructs a Monitor for one chain. blockDelay is subtracted from the
// observed height before broadcasting, buying reorg safety.
func New(chainID string, blockDelay uint64, source Source, logger log.Logger) *Monitor {
	return &Monitor{
		chainID:     chainID,
		blockDelay:  blockDelay,
		source:      source,
		logger:      logger,
		subscribers: make(map[chan BlockInfo]struct{}),
	}
}

// AttachToMonitor registers a new subscriber. The returned port receives
// only future advances; no synthetic replay of the current head is sent.
// The returned detach function must be called to unregister on shutdown.
func (m *Monitor) AttachToMonitor() (Port, func()) {
	ch := make(chan BlockInfo, 16)
	m.mu.Lock()
	m.subscribers[ch] = struct{}{}
	m.mu.Unlock()

	detach := func() {
		m.mu.Lock()
		if _, ok := m.subscribers[ch]; ok {
			delete(m.subscribers, ch)
			close(ch)
		}
		m.mu.Unlock()
	}
	return ch, detach
}

// CurrentBlock returns the last height broadcast, for synchronous lookups
// (e.g. the underwriter eval queue's "current block" check). ok is false
// before the first advance.
func (m *Monitor) CurrentBlock() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastBroadcast, m.lastBroadcastSet
}

// Run drives the upstream source and the broadcast fan-out until ctx is
// cancelled.
func (m *Monitor) Run(ctx context.Context) {
	go m.source.Run(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case block, ok := <-m.source.Blocks():
			if !ok {
				return
			}
			m.onObserved(block)
		}
	}
}

func (m *Monitor) onObserved(block BlockInfo) {
	broadcastHeight := uint64(0)
	if block.BlockNumber > m.blockDelay {
		broadcastHeight = block.BlockNumber - m.blockDelay
	}

	m.mu.Lock()
	if m.lastBroadcastSet && broadcastHeight <= m.lastBroadcast {
		m.mu.Unlock()
		return
	}
	m.lastBroadcast = broadcastHeight
	m.lastBroadcastSet = true
	msg := BlockInfo{
		ChainID:     m.chainID,
		BlockNumber: broadcastHeight,
		BlockHash:   block.BlockHash,
		Timestamp:   block.Timestamp,
	}
	subs := make([]chan BlockInfo, 0, len(m.subscribers))
	for ch := range m.subscribers {
		subs = append(subs, ch)
	}
	m.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- msg:
		default:
			m.logger.Warn("monitor subscriber slow, dropping advance", "chain", m.chainID, "block", msg.BlockNumber)
		}
	}
}

// DefaultPollInterval is the interval NewPollSource falls back to when it
// is given a non-positive one.
const DefaultPollInterval = 3 * time.Second
