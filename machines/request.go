// File: machines/request.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// RequestMachine relays requests queued from outside the loop into spawn
// instructions for the loop.

package machines

import (
	"errors"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/funnel"
)

// RequestMachine owns the consumer end of a funnel and a handler. It is a
// wakeup-only machine: it has no create, ready or timeout transitions.
type RequestMachine[R, S any] struct {
	handler  api.RequestHandler[R, S]
	rx       *funnel.Receiver[R]
	notifier api.Notifier
	done     bool
}

var _ api.Waker[int] = (*RequestMachine[string, int])(nil)

// NewRequestMachine builds the machine and the first producer handle of its
// funnel, bound to the scope's notifier.
func NewRequestMachine[R, S any](h api.RequestHandler[R, S], scope api.Scope) (*RequestMachine[R, S], *funnel.Funnel[R]) {
	n := scope.Notifier()
	tx, rx := funnel.New[R](n)
	return &RequestMachine[R, S]{handler: h, rx: rx, notifier: n}, tx
}

// Attach registers a new request machine on reg and returns the producer
// handle for its funnel.
func Attach[R, S any](reg api.Registrar[S], h api.RequestHandler[R, S]) (*funnel.Funnel[R], error) {
	var tx *funnel.Funnel[R]
	_, err := reg.AddWaker(func(scope api.Scope) (api.Waker[S], error) {
		m, f := NewRequestMachine[R, S](h, scope)
		tx = f
		return m, nil
	})
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// Spawned runs the drain that follows construction. It is the same drain as
// Wakeup since a wakeup may coincide with creation.
func (m *RequestMachine[R, S]) Spawned(scope api.Scope) api.Response[S] {
	return m.Wakeup(scope)
}

// Wakeup drains the funnel. It returns on the first seed so the driver can
// spawn it; if requests remain queued, or the producers are gone, the machine
// signals itself so the next dispatch continues without waiting for another
// producer.
func (m *RequestMachine[R, S]) Wakeup(scope api.Scope) api.Response[S] {
	if m.done {
		return api.Done[S]()
	}
	obs := scope.Observer()
	for {
		req, err := m.rx.TryRecv()
		switch {
		case err == nil:
			seed, ok := m.handler.OnRequest(req)
			obs.RequestDrained(ok)
			if !ok {
				continue
			}
			if m.rx.Len() > 0 || m.rx.Disconnected() {
				if werr := m.notifier.Wakeup(); werr != nil {
					scope.Logger().Warn("request machine re-wakeup failed", "error", werr)
				}
			}
			return api.Spawn(seed)
		case errors.Is(err, funnel.ErrEmpty):
			return api.Continue[S]()
		default:
			m.done = true
			m.rx.Close()
			scope.Logger().Debug("request machine terminated: all producers closed")
			return api.Done[S]()
		}
	}
}

// Pending returns the number of requests still queued.
func (m *RequestMachine[R, S]) Pending() int {
	return m.rx.Len()
}
