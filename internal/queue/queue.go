// Package queue holds the staging queues the storage backends drain in
// batches: voyage ticks push individual records, the DB writer empties a
// whole queue per flush interval.
package queue

import "sync"

// Queue is a thread-safe FIFO of staged records.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{items: make([]T, 0)}
}

// Push appends records in arrival order.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// Pop removes and returns the oldest record, or the zero value when the
// queue is empty.
func (q *Queue[T]) Pop() T {
	q.mu.Lock()
	defer q.mu.Unlock()
	var zero T
	if len(q.items) == 0 {
		return zero
	}
	item := q.items[0]
	q.items[0] = zero // release the popped slot
	q.items = q.items[1:]
	return item
}

// Empty reports whether the queue holds no records.
func (q *Queue[T]) Empty() bool {
	return q.Len() == 0
}

// Len returns the number of staged records.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Clear discards all staged records.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
}

// GetAndEmpty hands the whole batch to the caller and resets the queue.
// The returned slice is owned by the caller; the queue never touches it
// again.
func (q *Queue[T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.items
	q.items = make([]T, 0, cap(batch))
	return batch
}
