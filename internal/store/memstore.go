// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package store

import (
	"encoding/json"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/underwriter/internal/chain"
)

const recentKeysCacheSize = 4096

// Memstore is an in-memory Store implementation: a mutex-guarded map plus a
// channel-based pub/sub registry. It is the default backend for this
// daemon and for tests; a production deployment may instead point at the
// embedded key/value database shared with the listener, which need only
// satisfy the Store interface in store.go.
type Memstore struct {
	mu   sync.RWMutex
	data map[string][]byte

	subsMu sync.RWMutex
	subs   map[string]map[int]func(payload []byte)
	nextID int

	// recentKeys bounds the memory devoted to write-churn bookkeeping; it
	// is not consulted for correctness, only as an LRU of recently touched
	// keys for observability/debug dumps.
	recentKeys *lru.Cache
}

// NewMemstore constructs an empty in-memory Store.
func NewMemstore() *Memstore {
	cache, _ := lru.New(recentKeysCacheSize)
	return &Memstore{
		data:       make(map[string][]byte),
		subs:       make(map[string]map[int]func(payload []byte)),
		recentKeys: cache,
	}
}

func (m *Memstore) Set(key string, value []byte) error {
	m.mu.Lock()
	m.data[key] = append([]byte(nil), value...)
	m.mu.Unlock()
	m.recentKeys.Add(key, struct{}{})
	return nil
}

func (m *Memstore) Get(key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memstore) Del(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memstore) On(channel string, cb func(payload []byte)) func() {
	m.subsMu.Lock()
	if m.subs[channel] == nil {
		m.subs[channel] = make(map[int]func(payload []byte))
	}
	id := m.nextID
	m.nextID++
	m.subs[channel][id] = cb
	m.subsMu.Unlock()

	return func() {
		m.subsMu.Lock()
		delete(m.subs[channel], id)
		m.subsMu.Unlock()
	}
}

func (m *Memstore) Publish(channel string, payload []byte) {
	m.subsMu.RLock()
	cbs := make([]func(payload []byte), 0, len(m.subs[channel]))
	for _, cb := range m.subs[channel] {
		cbs = append(cbs, cb)
	}
	m.subsMu.RUnlock()

	for _, cb := range cbs {
		cb(payload)
	}
}

func (m *Memstore) GetActiveUnderwriteState(key chain.SwapKey) (*chain.ActiveSwapState, bool, error) {
	raw, ok, err := m.Get(swapStateKey(key))
	if err != nil || !ok {
		return nil, ok, err
	}
	var state chain.ActiveSwapState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, err
	}
	return &state, true, nil
}

func (m *Memstore) GetSwapStateByExpectedUnderwrite(toChainID string, toInterface common.Address, fingerprint common.Hash) (*chain.ActiveSwapState, bool, error) {
	raw, ok, err := m.Get(expectedUnderwriteKey(toChainID, toInterface, fingerprint))
	if err != nil || !ok {
		return nil, ok, err
	}
	var state chain.ActiveSwapState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, false, err
	}
	return &state, true, nil
}

func (m *Memstore) SaveSwapState(state *chain.ActiveSwapState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := m.Set(swapStateKey(state.Key), raw); err != nil {
		return err
	}
	return m.Set(expectedUnderwriteKey(state.Key.ToChainID, state.Key.ToInterface, state.Fingerprint), raw)
}
