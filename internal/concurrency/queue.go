// File: internal/concurrency/queue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Unbounded multi-producer/single-consumer FIFO used as funnel storage.
// Storage is an eapache ring that grows and shrinks by powers of two.

package concurrency

import (
	"sync"

	"github.com/eapache/queue"
)

// Queue is an unbounded FIFO. Push is safe from any goroutine; Pop is meant
// for a single consumer. The lock is never held outside of a single call.
type Queue[T any] struct {
	mu    sync.Mutex
	items *queue.Queue
}

// NewQueue creates an empty queue.
func NewQueue[T any]() *Queue[T] {
	return &Queue[T]{items: queue.New()}
}

// Push appends v. It never fails.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items.Add(v)
	q.mu.Unlock()
}

// Pop removes and returns the oldest element; ok is false if empty.
func (q *Queue[T]) Pop() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.items.Length() == 0 {
		return v, false
	}
	// nil interface values are stored as untyped nil
	v, _ = q.items.Remove().(T)
	return v, true
}

// Len returns the number of queued elements.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.items.Length()
}

// Reset drops every queued element.
func (q *Queue[T]) Reset() {
	q.mu.Lock()
	q.items = queue.New()
	q.mu.Unlock()
}
