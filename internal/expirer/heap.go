// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expirer

import (
	"container/heap"
	"sync"

	"github.com/luxfi/underwriter/internal/chain"
)

// expiryHeap is a min-heap on expireAt, with an index by key so an entry
// can be removed in O(log n) when SwapUnderwriteComplete or ExpireUnderwrite
// fires before the natural expiry.
type expiryHeap struct {
	mu      sync.Mutex
	items   []*scheduledExpiry
	byKey   map[chain.SwapKey]*scheduledExpiry
}

func newExpiryHeap() *expiryHeap {
	return &expiryHeap{byKey: make(map[chain.SwapKey]*scheduledExpiry)}
}

func (h *expiryHeap) Len() int            { return len(h.items) }
func (h *expiryHeap) Less(i, j int) bool  { return h.items[i].expireAt < h.items[j].expireAt }
func (h *expiryHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	h.items[i].heapIndex = i
	h.items[j].heapIndex = j
}
func (h *expiryHeap) Push(x interface{}) {
	e := x.(*scheduledExpiry)
	e.heapIndex = len(h.items)
	h.items = append(h.items, e)
}
func (h *expiryHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return e
}

// Insert admits a new scheduled expiry, replacing any existing entry for
// the same key.
func (h *expiryHeap) Insert(e *scheduledExpiry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if old, ok := h.byKey[e.key]; ok {
		heap.Remove(h, old.heapIndex)
	}
	heap.Push(h, e)
	h.byKey[e.key] = e
}

// Remove drops the entry for key, if any. Returns false if not found.
func (h *expiryHeap) Remove(key chain.SwapKey) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.byKey[key]
	if !ok {
		return false
	}
	heap.Remove(h, e.heapIndex)
	delete(h.byKey, key)
	return true
}

// PopReady removes and returns every entry whose expireAt <= currentBlock.
func (h *expiryHeap) PopReady(currentBlock uint64) []*scheduledExpiry {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ready []*scheduledExpiry
	for h.Len() > 0 && h.items[0].expireAt <= currentBlock {
		e := heap.Pop(h).(*scheduledExpiry)
		delete(h.byKey, e.key)
		ready = append(ready, e)
	}
	return ready
}
