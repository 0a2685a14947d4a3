package transfer

import "sync"

// Queue is an unbounded single-producer/single-consumer delivery queue.
// The transfer callbacks push into it while the exchange is in flight and
// the owning future drains it exactly once after resolution. This keeps
// the callbacks cheap and moves assembly out of the engine's I/O loop.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// NewQueue creates an empty delivery queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends an item to the queue.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// Drain removes and returns everything pushed so far, in push order.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	items := q.items
	q.items = nil
	return items
}

// Len reports how many items are currently queued.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
