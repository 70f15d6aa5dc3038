// (c) 2026, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/luxfi/log"
	"github.com/stretchr/testify/require"
)

type testOrder struct {
	id       string
	deadline time.Time
}

func (o testOrder) OrderID() string      { return o.id }
func (o testOrder) Deadline() time.Time { return o.deadline }

type recordingStrategy struct {
	mu        sync.Mutex
	started   []string
	completed []string
	rejected  []string

	handle func(order testOrder, retryCount int) (Outcome[string], error)
	onFail func(order testOrder, retryCount int, cause error) bool
}

func (s *recordingStrategy) HandleOrder(ctx context.Context, order testOrder, retryCount int) (Outcome[string], error) {
	s.mu.Lock()
	s.started = append(s.started, order.id)
	s.mu.Unlock()
	if s.handle != nil {
		return s.handle(order, retryCount)
	}
	return Outcome[string]{Settled: true, Result: order.id}, nil
}

func (s *recordingStrategy) HandleFailedOrder(ctx context.Context, order testOrder, retryCount int, cause error) bool {
	if s.onFail != nil {
		return s.onFail(order, retryCount, cause)
	}
	return false
}

func (s *recordingStrategy) OnOrderCompletion(order testOrder, success bool, result string, retryCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if success {
		s.completed = append(s.completed, order.id)
	} else {
		s.rejected = append(s.rejected, order.id)
	}
}

func testLogger() log.Logger { return log.Root() }

func TestQueue_HappyPathInsertionOrder(t *testing.T) {
	strat := &recordingStrategy{}
	q := New[testOrder, string]("test", Config{MaxConcurrent: 1}, strat, testLogger())

	q.AddOrders(testOrder{id: "A"}, testOrder{id: "B"})

	require.Eventually(t, func() bool {
		q.ProcessOrders(context.Background())
		strat.mu.Lock()
		defer strat.mu.Unlock()
		return len(strat.started) == 2
	}, time.Second, time.Millisecond)

	strat.mu.Lock()
	defer strat.mu.Unlock()
	require.Equal(t, []string{"A", "B"}, strat.started)
}

func TestQueue_DeadlineExceededRejectsWithoutHandling(t *testing.T) {
	strat := &recordingStrategy{}
	q := New[testOrder, string]("test", Config{MaxConcurrent: 1}, strat, testLogger())

	q.AddOrders(testOrder{id: "late", deadline: time.Now().Add(-time.Hour)})

	var lastRejects []Rejected[testOrder]
	require.Eventually(t, func() bool {
		q.ProcessOrders(context.Background())
		_, rejects, _ := q.GetFinishedOrders()
		lastRejects = append(lastRejects, rejects...)
		return len(lastRejects) == 1
	}, time.Second, time.Millisecond)
	require.IsType(t, DeadlineExceededError{}, lastRejects[0].Err)

	strat.mu.Lock()
	defer strat.mu.Unlock()
	require.Empty(t, strat.started, "HandleOrder must not be called for an already-expired order")
}

func TestQueue_RetryThenSucceed(t *testing.T) {
	attempts := 0
	strat := &recordingStrategy{}
	strat.handle = func(order testOrder, retryCount int) (Outcome[string], error) {
		attempts++
		if attempts < 2 {
			return Outcome[string]{}, errors.New("transient")
		}
		return Outcome[string]{Settled: true, Result: "ok"}, nil
	}
	strat.onFail = func(order testOrder, retryCount int, cause error) bool { return true }

	q := New[testOrder, string]("test", Config{MaxConcurrent: 1, MaxTries: 3, RetryInterval: time.Millisecond}, strat, testLogger())
	q.AddOrders(testOrder{id: "R"})
	q.ProcessOrders(context.Background())

	require.Eventually(t, func() bool {
		time.Sleep(2 * time.Millisecond)
		q.ProcessOrders(context.Background())
		successes, _, _ := q.GetFinishedOrders()
		return len(successes) == 1
	}, time.Second, time.Millisecond)

	require.GreaterOrEqual(t, attempts, 2)
}

func TestQueue_MaxTriesExhaustedRejects(t *testing.T) {
	strat := &recordingStrategy{}
	strat.handle = func(order testOrder, retryCount int) (Outcome[string], error) {
		return Outcome[string]{}, errors.New("always fails")
	}
	strat.onFail = func(order testOrder, retryCount int, cause error) bool { return true }

	q := New[testOrder, string]("test", Config{MaxConcurrent: 1, MaxTries: 2, RetryInterval: time.Millisecond}, strat, testLogger())
	q.AddOrders(testOrder{id: "X"})

	var rejects []Rejected[testOrder]
	require.Eventually(t, func() bool {
		q.ProcessOrders(context.Background())
		_, r, _ := q.GetFinishedOrders()
		rejects = append(rejects, r...)
		return len(rejects) == 1
	}, 2*time.Second, time.Millisecond)

	require.LessOrEqual(t, rejects[0].RetryCount+1, 2)
}

func TestQueue_PanicInHandleOrderRejectsWithoutRetry(t *testing.T) {
	strat := &recordingStrategy{}
	strat.handle = func(order testOrder, retryCount int) (Outcome[string], error) {
		panic("boom")
	}
	strat.onFail = func(order testOrder, retryCount int, cause error) bool {
		t.Fatalf("HandleFailedOrder should not be reached for a panic in this test")
		return false
	}

	q := New[testOrder, string]("test", Config{MaxConcurrent: 1, MaxTries: 5, RetryInterval: time.Millisecond}, strat, testLogger())
	q.AddOrders(testOrder{id: "P"})

	require.Eventually(t, func() bool {
		q.ProcessOrders(context.Background())
		_, rejects, _ := q.GetFinishedOrders()
		return len(rejects) == 1
	}, time.Second, time.Millisecond)
}

func TestQueue_MaxConcurrentBoundsInFlight(t *testing.T) {
	var inFlightNow, maxSeen int32
	var mu sync.Mutex
	strat := &recordingStrategy{}
	release := make(chan struct{})
	strat.handle = func(order testOrder, retryCount int) (Outcome[string], error) {
		mu.Lock()
		inFlightNow++
		if inFlightNow > maxSeen {
			maxSeen = inFlightNow
		}
		mu.Unlock()
		<-release
		mu.Lock()
		inFlightNow--
		mu.Unlock()
		return Outcome[string]{Settled: true, Result: order.id}, nil
	}

	q := New[testOrder, string]("test", Config{MaxConcurrent: 2}, strat, testLogger())
	for i := 0; i < 5; i++ {
		q.AddOrders(testOrder{id: string(rune('A' + i))})
	}
	q.ProcessOrders(context.Background())
	time.Sleep(20 * time.Millisecond)
	q.ProcessOrders(context.Background())
	time.Sleep(20 * time.Millisecond)
	close(release)

	var totalSuccesses int
	require.Eventually(t, func() bool {
		q.ProcessOrders(context.Background())
		successes, _, _ := q.GetFinishedOrders()
		totalSuccesses += len(successes)
		return totalSuccesses == 5
	}, time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.LessOrEqual(t, int(maxSeen), 2)
}
