// Package fake
// Author: momentics <momentics@gmail.com>
//
// Recording request handler.

package fake

import "sync"

// Handler records every request it sees and asks Decide for a seed.
type Handler[R, S any] struct {
	mu     sync.Mutex
	seen   []R
	Decide func(R) (S, bool)
}

// OnRequest implements api.RequestHandler.
func (h *Handler[R, S]) OnRequest(req R) (seed S, ok bool) {
	h.mu.Lock()
	h.seen = append(h.seen, req)
	h.mu.Unlock()
	if h.Decide == nil {
		return seed, false
	}
	return h.Decide(req)
}

// Seen returns a copy of the requests handled so far.
func (h *Handler[R, S]) Seen() []R {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]R, len(h.seen))
	copy(out, h.seen)
	return out
}

// Counts is a point-in-time copy of Observer counters.
type Counts struct {
	Added, Removed, Wakeups     int
	Spawns, SpawnFailures       int
	Requests, RequestsWithSpawn int
}

// Observer counts notifications.
type Observer struct {
	mu sync.Mutex
	c  Counts
}

func (o *Observer) MachineAdded()   { o.mu.Lock(); o.c.Added++; o.mu.Unlock() }
func (o *Observer) MachineRemoved() { o.mu.Lock(); o.c.Removed++; o.mu.Unlock() }
func (o *Observer) Wakeup()         { o.mu.Lock(); o.c.Wakeups++; o.mu.Unlock() }
func (o *Observer) Spawned()        { o.mu.Lock(); o.c.Spawns++; o.mu.Unlock() }
func (o *Observer) SpawnFailed()    { o.mu.Lock(); o.c.SpawnFailures++; o.mu.Unlock() }

func (o *Observer) RequestDrained(spawned bool) {
	o.mu.Lock()
	o.c.Requests++
	if spawned {
		o.c.RequestsWithSpawn++
	}
	o.mu.Unlock()
}

// Snapshot returns the current counters.
func (o *Observer) Snapshot() Counts {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.c
}
