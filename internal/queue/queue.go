// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package queue implements the generic bounded-concurrency processing queue
// described in the underwriter design: a scheduler tick moves retry-ready
// orders back into the new-orders bucket, launches new orders up to a
// concurrency cap, and drains settled work into success/rejection buckets.
//
// Every pipeline in this repository (wallet submit/confirm queues, the
// underwriter eval/submit queues, the expirer eval/submit queue) is an
// instantiation of Queue with its own Strategy.
package queue

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/luxfi/log"
	"golang.org/x/sync/semaphore"
)

// Order is the minimal contract a queued item must satisfy.
type Order interface {
	// OrderID must be stable and unique for the lifetime of the order; it is
	// used to correlate in-flight completions back to their slot.
	OrderID() string
	// Deadline returns the latest time handleOrder may still be invoked for
	// this order. A zero Time means no deadline.
	Deadline() time.Time
}

// Strategy supplies the three hooks a queue instantiation must implement.
// It replaces subclassing a base queue type: the queue invokes the
// interface, no runtime type dispatch needed.
type Strategy[I Order, R any] interface {
	// HandleOrder processes one order. It may return a settled result, a
	// future the queue should await, nil (drop silently, no retry), or an
	// error/panic (handled via HandleFailedOrder).
	HandleOrder(ctx context.Context, order I, retryCount int) (Outcome[R], error)

	// HandleFailedOrder decides whether a failed order should be retried.
	// It must not itself fail; if it panics the order is force-rejected.
	HandleFailedOrder(ctx context.Context, order I, retryCount int, cause error) bool

	// OnOrderCompletion is a notification-only hook, called once an order
	// reaches a terminal state (success or rejection).
	OnOrderCompletion(order I, success bool, result R, retryCount int)
}

// Outcome is what HandleOrder returns for one invocation.
type Outcome[R any] struct {
	// Drop, when true, means "drop silently, do not retry".
	Drop bool
	// Result is set when the order settled synchronously.
	Result R
	Settled bool
	// Future, when non-nil, is awaited by the queue; its settlement feeds
	// the same success/fail paths as a synchronous result.
	Future <-chan FutureResult[R]
}

// FutureResult is the settlement of a Future outcome.
type FutureResult[R any] struct {
	Result R
	Err    error
}

// Config tunes one Queue instance.
type Config struct {
	MaxConcurrent  int
	MaxTries       int
	RetryInterval  time.Duration
	TickInterval   time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = 1
	}
	if c.MaxTries <= 0 {
		c.MaxTries = 1
	}
	if c.RetryInterval <= 0 {
		c.RetryInterval = time.Second
	}
	if c.TickInterval <= 0 {
		c.TickInterval = 200 * time.Millisecond
	}
	return c
}

type retryItem[I Order] struct {
	order      I
	retryCount int
	retryAt    time.Time
	index      int
}

type retryHeap[I Order] []*retryItem[I]

func (h retryHeap[I]) Len() int            { return len(h) }
func (h retryHeap[I]) Less(i, j int) bool  { return h[i].retryAt.Before(h[j].retryAt) }
func (h retryHeap[I]) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index = i; h[j].index = j }
func (h *retryHeap[I]) Push(x interface{}) { item := x.(*retryItem[I]); item.index = len(*h); *h = append(*h, item) }
func (h *retryHeap[I]) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

type inFlight[I Order] struct {
	order      I
	retryCount int
}

// Finished is one item drained by GetFinishedOrders.
type Finished[I Order, R any] struct {
	Order      I
	RetryCount int
	Result     R
}

// Rejected is one terminally-failed item drained by GetFinishedOrders.
type Rejected[I Order] struct {
	Order      I
	RetryCount int
	Err        error
}

// Queue is the generic processing engine. Zero value is not usable; use New.
type Queue[I Order, R any] struct {
	name     string
	cfg      Config
	strategy Strategy[I, R]
	logger   log.Logger

	mu          sync.Mutex
	newOrders   []I
	retry       retryHeap[I]
	retryCounts map[string]int
	inflight    map[string]*inFlight[I]

	successes []Finished[I, R]
	rejects   []Rejected[I]

	sem *semaphore.Weighted
}

// New constructs a Queue. name is used only for logging/observability.
func New[I Order, R any](name string, cfg Config, strategy Strategy[I, R], logger log.Logger) *Queue[I, R] {
	cfg = cfg.withDefaults()
	return &Queue[I, R]{
		name:     name,
		cfg:      cfg,
		strategy: strategy,
		logger:   logger,
		inflight: make(map[string]*inFlight[I]),
		sem:      semaphore.NewWeighted(int64(cfg.MaxConcurrent)),
	}
}

// AddOrders appends to the new-orders bucket. Returns once buffered.
func (q *Queue[I, R]) AddOrders(orders ...I) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.newOrders = append(q.newOrders, orders...)
}

// Size returns the count of orders not yet terminal: new + retry + inflight.
func (q *Queue[I, R]) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.newOrders) + len(q.retry) + len(q.inflight)
}

// RetryQueueLength returns the number of orders waiting in the retry bucket.
func (q *Queue[I, R]) RetryQueueLength() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.retry)
}

// GetFinishedOrders drains and returns everything settled since the last
// call: (successes, rejections, pending-count-remaining).
func (q *Queue[I, R]) GetFinishedOrders() ([]Finished[I, R], []Rejected[I], int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.successes
	r := q.rejects
	q.successes = nil
	q.rejects = nil
	pending := len(q.newOrders) + len(q.retry) + len(q.inflight)
	return s, r, pending
}

// Run drives ProcessOrders on cfg.TickInterval until ctx is cancelled.
func (q *Queue[I, R]) Run(ctx context.Context) {
	ticker := time.NewTicker(q.cfg.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			q.ProcessOrders(ctx)
		}
	}
}

// ProcessOrders performs one scheduler tick: moves retry-ready orders back
// to new-orders and launches new orders up to maxConcurrent.
func (q *Queue[I, R]) ProcessOrders(ctx context.Context) {
	now := time.Now()

	q.mu.Lock()
	for q.retry.Len() > 0 && !q.retry[0].retryAt.After(now) {
		item := heap.Pop(&q.retry).(*retryItem[I])
		q.newOrders = append(q.newOrders, item.order)
		q.pendingRetryCounts()[item.order.OrderID()] = item.retryCount
	}
	var toLaunch []I
	for len(q.newOrders) > 0 {
		if !q.sem.TryAcquire(1) {
			break
		}
		order := q.newOrders[0]
		q.newOrders = q.newOrders[1:]
		toLaunch = append(toLaunch, order)
	}
	q.mu.Unlock()

	for _, order := range toLaunch {
		q.launch(ctx, order)
	}
}

// pendingRetryCounts is a tiny helper map kept on the queue to remember the
// retry count an order carries between the retry heap and relaunch. Using
// order id as key avoids widening the Order interface.
func (q *Queue[I, R]) pendingRetryCounts() map[string]int {
	if q.retryCounts == nil {
		q.retryCounts = make(map[string]int)
	}
	return q.retryCounts
}

func (q *Queue[I, R]) launch(ctx context.Context, order I) {
	retryCount := 0
	q.mu.Lock()
	if rc, ok := q.retryCounts[order.OrderID()]; ok {
		retryCount = rc
		delete(q.retryCounts, order.OrderID())
	}
	q.inflight[order.OrderID()] = &inFlight[I]{order: order, retryCount: retryCount}
	q.mu.Unlock()

	go q.run(ctx, order, retryCount)
}

func (q *Queue[I, R]) run(ctx context.Context, order I, retryCount int) {
	defer q.sem.Release(1)

	if d := order.Deadline(); !d.IsZero() && time.Now().After(d) {
		q.reject(order, retryCount, DeadlineExceededError{OrderID: order.OrderID()})
		return
	}

	outcome, panicked, err := q.invokeHandleOrder(ctx, order, retryCount)
	if panicked {
		q.logger.Error("panic in HandleOrder, forcing rejection", "queue", q.name, "order", order.OrderID(), "err", err)
		q.reject(order, retryCount, err)
		return
	}
	if err != nil {
		q.fail(ctx, order, retryCount, err)
		return
	}
	if outcome.Drop {
		q.mu.Lock()
		delete(q.inflight, order.OrderID())
		q.mu.Unlock()
		return
	}
	if outcome.Future != nil {
		fr := <-outcome.Future
		if fr.Err != nil {
			q.fail(ctx, order, retryCount, fr.Err)
			return
		}
		q.succeed(order, retryCount, fr.Result)
		return
	}
	if outcome.Settled {
		q.succeed(order, retryCount, outcome.Result)
		return
	}
	// Neither dropped, settled, nor future: treat as a silent drop.
	q.mu.Lock()
	delete(q.inflight, order.OrderID())
	q.mu.Unlock()
}

// invokeHandleOrder recovers panics from the strategy, converting them to an
// error and reporting panicked so run can reject the order without retry.
func (q *Queue[I, R]) invokeHandleOrder(ctx context.Context, order I, retryCount int) (outcome Outcome[R], panicked bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in HandleOrder: %v", r)
			panicked = true
		}
	}()
	outcome, err = q.strategy.HandleOrder(ctx, order, retryCount)
	return outcome, false, err
}

func (q *Queue[I, R]) fail(ctx context.Context, order I, retryCount int, cause error) {
	shouldRetry := q.invokeHandleFailedOrder(ctx, order, retryCount, cause)

	if shouldRetry && retryCount+1 < q.cfg.MaxTries {
		retryAt := time.Now().Add(q.cfg.RetryInterval)
		if d := order.Deadline(); !d.IsZero() && retryAt.After(d) {
			q.rejectLocked(order, retryCount, DeadlineExceededError{OrderID: order.OrderID()})
			return
		}
		q.mu.Lock()
		delete(q.inflight, order.OrderID())
		heap.Push(&q.retry, &retryItem[I]{
			order:      order,
			retryCount: retryCount + 1,
			retryAt:    retryAt,
		})
		q.mu.Unlock()
		return
	}
	q.rejectLocked(order, retryCount, cause)
}

func (q *Queue[I, R]) invokeHandleFailedOrder(ctx context.Context, order I, retryCount int, cause error) (shouldRetry bool) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic in HandleFailedOrder, forcing rejection", "queue", q.name, "order", order.OrderID(), "panic", r)
			shouldRetry = false
		}
	}()
	return q.strategy.HandleFailedOrder(ctx, order, retryCount, cause)
}

func (q *Queue[I, R]) rejectLocked(order I, retryCount int, cause error) {
	q.mu.Lock()
	delete(q.inflight, order.OrderID())
	q.rejects = append(q.rejects, Rejected[I]{Order: order, RetryCount: retryCount, Err: cause})
	q.mu.Unlock()
	var zero R
	q.strategy.OnOrderCompletion(order, false, zero, retryCount)
}

func (q *Queue[I, R]) reject(order I, retryCount int, cause error) {
	q.rejectLocked(order, retryCount, cause)
}

func (q *Queue[I, R]) succeed(order I, retryCount int, result R) {
	q.mu.Lock()
	delete(q.inflight, order.OrderID())
	q.successes = append(q.successes, Finished[I, R]{Order: order, RetryCount: retryCount, Result: result})
	q.mu.Unlock()
	q.strategy.OnOrderCompletion(order, true, result, retryCount)
}
