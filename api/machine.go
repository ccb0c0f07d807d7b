// File: api/machine.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Machine lifecycle contracts shared by the event-loop driver and the
// machines it hosts.

package api

import "log/slog"

// EventSet is a bitmask of I/O readiness conditions delivered to Ready.
type EventSet uint32

const (
	EventReadable EventSet = 1 << iota
	EventWritable
	EventError
	EventHangup
)

// Has reports whether all bits of other are set in e.
func (e EventSet) Has(other EventSet) bool {
	return e&other == other
}

func (e EventSet) String() string {
	if e == 0 {
		return "none"
	}
	out := ""
	add := func(s string) {
		if out != "" {
			out += "|"
		}
		out += s
	}
	if e&EventReadable != 0 {
		add("readable")
	}
	if e&EventWritable != 0 {
		add("writable")
	}
	if e&EventError != 0 {
		add("error")
	}
	if e&EventHangup != 0 {
		add("hangup")
	}
	return out
}

type responseKind uint8

const (
	respContinue responseKind = iota
	respSpawn
	respDone
)

// Response is the instruction a machine returns from every lifecycle call.
// It is consumed by the driver immediately and never stored.
type Response[S any] struct {
	kind responseKind
	seed S
}

// Continue keeps the machine registered in its current state.
func Continue[S any]() Response[S] {
	return Response[S]{kind: respContinue}
}

// Spawn asks the driver to create a new machine from seed while keeping the
// current one registered.
func Spawn[S any](seed S) Response[S] {
	return Response[S]{kind: respSpawn, seed: seed}
}

// Done asks the driver to unregister and drop the machine.
func Done[S any]() Response[S] {
	return Response[S]{kind: respDone}
}

func (r Response[S]) IsContinue() bool { return r.kind == respContinue }
func (r Response[S]) IsSpawn() bool    { return r.kind == respSpawn }
func (r Response[S]) IsDone() bool     { return r.kind == respDone }

// Seed returns the spawn seed; ok is false for non-spawn responses.
func (r Response[S]) Seed() (seed S, ok bool) {
	if r.kind != respSpawn {
		return seed, false
	}
	return r.seed, true
}

func (r Response[S]) String() string {
	switch r.kind {
	case respSpawn:
		return "spawn"
	case respDone:
		return "done"
	default:
		return "continue"
	}
}

// Notifier wakes the event loop on behalf of one registration. It is a
// cloneable value, safe for use from any goroutine.
type Notifier interface {
	Wakeup() error
}

// Scope is handed to a machine on every lifecycle call. It is only valid on
// the loop goroutine for the duration of that call, except for the Notifier
// it returns.
type Scope interface {
	Notifier() Notifier
	Logger() *slog.Logger
	Observer() Observer
}

// Waker is the narrow capability of machines that are only ever woken
// through their Notifier. They are never created from a seed, never
// registered for readiness and never arm a timer.
type Waker[S any] interface {
	Wakeup(scope Scope) Response[S]
}

// Machine is the full lifecycle contract for seed-created machines.
type Machine[S any] interface {
	Waker[S]
	Ready(events EventSet, scope Scope) Response[S]
	Timeout(scope Scope) Response[S]
}

// Factory is the create-by-seed path. Returning an error rejects the seed.
type Factory[S any] func(seed S, scope Scope) (Machine[S], error)

// Token identifies a registration within one event loop.
type Token uint64

// Registrar accepts directly constructed machines.
type Registrar[S any] interface {
	AddMachine(build func(Scope) (Machine[S], error)) (Token, error)
	AddWaker(build func(Scope) (Waker[S], error)) (Token, error)
}
