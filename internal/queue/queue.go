// Package queue implements the bounded multi-producer/multi-consumer queue
// used for every fan-out and fan-in in the driver.
//
// A queue is created knowing two bounds: how many items will ever be pushed
// (capacity) and the total weight those items carry. Consumers pop until the
// popped weight reaches the total; from then on every pop, including pops by
// goroutines that arrive late, reports StatusDrained. No separate shutdown
// signal is needed.
package queue

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Status is the outcome of a pop.
type Status uint8

const (
	// StatusItem means an item was returned.
	StatusItem Status = iota
	// StatusEmpty means nothing is buffered right now; try again.
	StatusEmpty
	// StatusTimedOut means a timed wait expired; the caller keeps waiting.
	StatusTimedOut
	// StatusDrained means no item will ever arrive again.
	StatusDrained
)

func (s Status) String() string {
	switch s {
	case StatusItem:
		return "item"
	case StatusEmpty:
		return "empty"
	case StatusTimedOut:
		return "timed-out"
	case StatusDrained:
		return "drained"
	}
	return "unknown"
}

type entry[T any] struct {
	item   T
	weight int64
}

// Queue is a fixed-capacity MPMC queue with weight-based drain detection.
type Queue[T any] struct {
	ch       chan entry[T]
	capacity int64
	total    int64

	items  atomic.Int64 // сколько элементов положено
	pushed atomic.Int64 // суммарный вес положенных
	popped atomic.Int64 // суммарный вес извлечённых

	drained   chan struct{}
	drainOnce sync.Once
}

// New creates a queue that accepts at most capacity items carrying total weight.
// A zero capacity for a non-zero total is a sizing bug and panics.
func New[T any](capacity, total int) *Queue[T] {
	if capacity < 0 || total < 0 {
		panic(fmt.Sprintf("queue: negative bounds (capacity=%d, total=%d)", capacity, total))
	}
	if capacity == 0 && total > 0 {
		panic(fmt.Sprintf("queue: zero capacity for total weight %d", total))
	}
	q := &Queue[T]{
		ch:       make(chan entry[T], capacity),
		capacity: int64(capacity),
		total:    int64(total),
		drained:  make(chan struct{}),
	}
	if total == 0 {
		q.markDrained()
	}
	return q
}

// Push adds item with the given weight. It never blocks: the queue was sized
// for every item up front, so exceeding capacity or total weight panics.
func (q *Queue[T]) Push(item T, weight int) {
	if weight < 0 {
		panic(fmt.Sprintf("queue: negative weight %d", weight))
	}
	if n := q.items.Add(1); n > q.capacity {
		panic(fmt.Sprintf("queue: push of item %d exceeds capacity %d", n, q.capacity))
	}
	if w := q.pushed.Add(int64(weight)); w > q.total {
		panic(fmt.Sprintf("queue: pushed weight %d exceeds total %d", w, q.total))
	}
	q.ch <- entry[T]{item: item, weight: int64(weight)}
}

// TryPop returns an item, StatusEmpty or StatusDrained without blocking.
func (q *Queue[T]) TryPop() (T, Status) {
	select {
	case e := <-q.ch:
		return q.take(e), StatusItem
	default:
	}
	var zero T
	if q.isDrained() {
		return zero, StatusDrained
	}
	return zero, StatusEmpty
}

// WaitPopTimed blocks for at most d. It returns as soon as an item arrives or
// the queue drains; StatusTimedOut means "still waiting, come back".
func (q *Queue[T]) WaitPopTimed(d time.Duration) (T, Status) {
	if item, st := q.TryPop(); st != StatusEmpty {
		return item, st
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	var zero T
	select {
	case e := <-q.ch:
		return q.take(e), StatusItem
	case <-q.drained:
		return q.afterDrain()
	case <-timer.C:
		return zero, StatusTimedOut
	}
}

// WaitPop blocks until an item arrives or the queue drains. Only callers that
// know every producer will finish may use it.
func (q *Queue[T]) WaitPop() (T, Status) {
	if item, st := q.TryPop(); st != StatusEmpty {
		return item, st
	}
	select {
	case e := <-q.ch:
		return q.take(e), StatusItem
	case <-q.drained:
		return q.afterDrain()
	}
}

// Pushed returns the total weight pushed so far.
func (q *Queue[T]) Pushed() int { return int(q.pushed.Load()) }

// Popped returns the total weight popped so far.
func (q *Queue[T]) Popped() int { return int(q.popped.Load()) }

// Len returns the number of buffered items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Drained reports whether the queue reached its terminal state.
func (q *Queue[T]) Drained() bool { return q.isDrained() && len(q.ch) == 0 }

func (q *Queue[T]) take(e entry[T]) T {
	if q.popped.Add(e.weight) >= q.total {
		q.markDrained()
	}
	return e.item
}

// zero-weight items may still sit in the buffer after the last weighted pop
func (q *Queue[T]) afterDrain() (T, Status) {
	select {
	case e := <-q.ch:
		return q.take(e), StatusItem
	default:
	}
	var zero T
	return zero, StatusDrained
}

func (q *Queue[T]) markDrained() {
	q.drainOnce.Do(func() { close(q.drained) })
}

func (q *Queue[T]) isDrained() bool {
	select {
	case <-q.drained:
		return true
	default:
		return false
	}
}
