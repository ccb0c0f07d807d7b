// File: reactor/notifier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"fmt"
	"log/slog"

	"github.com/momentics/hioload-relay/api"
)

// poster is the loop-side sink of notifier signals.
type poster interface {
	post(ev event) error
}

// Notifier wakes one registration. It is a plain value: copy it freely and
// use it from any goroutine.
type Notifier struct {
	loop  poster
	token api.Token
}

// Wakeup schedules a Wakeup call for the registration. Signals sent before
// the registration is dispatched coalesce into one call.
func (n Notifier) Wakeup() error {
	return n.loop.post(event{token: n.token, kind: evWakeup})
}

// Token returns the registration the notifier targets.
func (n Notifier) Token() api.Token {
	return n.token
}

type scope struct {
	notifier Notifier
	log      *slog.Logger
	obs      api.Observer
}

func (s *scope) Notifier() api.Notifier { return s.notifier }
func (s *scope) Logger() *slog.Logger   { return s.log }
func (s *scope) Observer() api.Observer { return s.obs }

// wakeOnly lifts a Waker to the full machine contract. The lifecycle calls a
// waker never accepts panic with *api.TransitionError; Run turns that into a
// fatal loop error.
type wakeOnly[S any] struct {
	api.Waker[S]
	token api.Token
}

func (w wakeOnly[S]) Ready(events api.EventSet, _ api.Scope) api.Response[S] {
	panic(&api.TransitionError{
		Machine:    fmt.Sprintf("%T", w.Waker),
		Transition: "ready(" + events.String() + ")",
		Token:      w.token,
	})
}

func (w wakeOnly[S]) Timeout(_ api.Scope) api.Response[S] {
	panic(&api.TransitionError{
		Machine:    fmt.Sprintf("%T", w.Waker),
		Transition: "timeout",
		Token:      w.token,
	})
}
