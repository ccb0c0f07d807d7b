// File: funnel/funnel.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package funnel implements an unbounded multi-producer/single-consumer
// channel whose sends wake the event loop through a Notifier.

package funnel

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/internal/concurrency"
)

var (
	// ErrEmpty is returned by TryRecv when nothing is queued but producers remain.
	ErrEmpty = errors.New("funnel: empty")

	// ErrDisconnected is returned by TryRecv once every producer handle is
	// closed and the queue is drained. It is permanent.
	ErrDisconnected = errors.New("funnel: disconnected")

	// ErrClosed is returned when a closed producer handle is used.
	ErrClosed = errors.New("funnel: producer handle closed")

	// ErrReceiverClosed is returned by Send once the consumer is gone.
	ErrReceiverClosed = errors.New("funnel: receiver closed")
)

// pair is the state shared by one Receiver and all of its producer handles.
type pair[T any] struct {
	queue    *concurrency.Queue[T]
	notifier api.Notifier
	senders  atomic.Int64
	rxClosed atomic.Bool
}

// Funnel is a producer handle. Each handle must be closed exactly once;
// Clone gives another goroutine its own handle.
type Funnel[T any] struct {
	p      *pair[T]
	closed atomic.Bool
}

// Receiver is the consumer end, owned by a single machine.
type Receiver[T any] struct {
	p      *pair[T]
	closed bool
}

// New creates a channel pair bound to n.
func New[T any](n api.Notifier) (*Funnel[T], *Receiver[T]) {
	p := &pair[T]{
		queue:    concurrency.NewQueue[T](),
		notifier: n,
	}
	p.senders.Store(1)
	return &Funnel[T]{p: p}, &Receiver[T]{p: p}
}

// Send enqueues v and signals the notifier once. If the notifier fails the
// value stays queued and the notifier error is returned.
func (f *Funnel[T]) Send(v T) error {
	if f.closed.Load() {
		return ErrClosed
	}
	if f.p.rxClosed.Load() {
		return ErrReceiverClosed
	}
	f.p.queue.Push(v)
	if err := f.p.notifier.Wakeup(); err != nil {
		return fmt.Errorf("funnel: wakeup: %w", err)
	}
	return nil
}

// Clone returns a new producer handle for the same receiver.
func (f *Funnel[T]) Clone() (*Funnel[T], error) {
	if f.closed.Load() {
		return nil, ErrClosed
	}
	f.p.senders.Add(1)
	return &Funnel[T]{p: f.p}, nil
}

// Close drops this handle. Closing the last handle disconnects the channel
// and wakes the consumer so it can observe that. Repeated calls are no-ops.
func (f *Funnel[T]) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	if f.p.senders.Add(-1) != 0 || f.p.rxClosed.Load() {
		return nil
	}
	if err := f.p.notifier.Wakeup(); err != nil {
		return fmt.Errorf("funnel: wakeup: %w", err)
	}
	return nil
}

// TryRecv returns the next value without blocking, or ErrEmpty or
// ErrDisconnected.
func (r *Receiver[T]) TryRecv() (v T, err error) {
	if r.closed {
		return v, ErrDisconnected
	}
	// Load senders before popping: every push of a handle precedes its
	// decrement, so zero here means nothing else can arrive.
	disconnected := r.p.senders.Load() == 0
	if v, ok := r.p.queue.Pop(); ok {
		return v, nil
	}
	if disconnected {
		return v, ErrDisconnected
	}
	return v, ErrEmpty
}

// Len returns the number of queued values.
func (r *Receiver[T]) Len() int {
	if r.closed {
		return 0
	}
	return r.p.queue.Len()
}

// Disconnected reports whether every producer handle has been closed. Values
// may still be queued.
func (r *Receiver[T]) Disconnected() bool {
	return r.closed || r.p.senders.Load() == 0
}

// Close detaches the consumer and discards queued values.
func (r *Receiver[T]) Close() {
	if r.closed {
		return
	}
	r.closed = true
	r.p.rxClosed.Store(true)
	r.p.queue.Reset()
}
