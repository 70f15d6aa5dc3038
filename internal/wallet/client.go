// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package wallet

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
)

// Client correlates requests sent on a Port with their eventual reply by
// messageID, turning the port's async request/reply protocol into a
// per-call channel a caller (e.g. a processing queue's HandleOrder) can
// await. One Client should be shared by all submissions from one pipeline
// attached to the same Port.
type Client struct {
	port Port

	mu        sync.Mutex
	pending   map[string]chan Reply
	idCounter int64
	prefix    string
}

// NewClient wraps port for request/reply correlation. prefix distinguishes
// this client's message IDs in logs (e.g. "underwrite", "expire").
func NewClient(port Port, prefix string) *Client {
	return &Client{port: port, pending: make(map[string]chan Reply), prefix: prefix}
}

// Run drains replies until ctx is cancelled, dispatching each to the
// channel registered by the matching Submit call.
func (c *Client) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case reply, ok := <-c.port.Replies:
			if !ok {
				return
			}
			c.mu.Lock()
			ch, found := c.pending[reply.MessageID]
			if found {
				delete(c.pending, reply.MessageID)
			}
			c.mu.Unlock()
			if found {
				ch <- reply
			}
		}
	}
}

// Submit dispatches one transaction request and returns a channel that
// receives its eventual reply.
func (c *Client) Submit(ctx context.Context, txReq TxRequest, metadata interface{}, opts Options) (<-chan Reply, error) {
	id := fmt.Sprintf("%s-%d", c.prefix, atomic.AddInt64(&c.idCounter, 1))
	ch := make(chan Reply, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	req := PortRequest{MessageID: id, TxRequest: txReq, Metadata: metadata, Options: opts}
	select {
	case c.port.Requests <- req:
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
	return ch, nil
}
