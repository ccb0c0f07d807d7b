// Package fake
// Author: momentics <momentics@gmail.com>
//
// Fake implementations for testing and development.
// Provides predictable, controllable behavior for the loop-facing contracts.

package fake

import (
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-relay/api"
)

// Notifier counts wakeups and can be told to fail.
type Notifier struct {
	count atomic.Int64
	mu    sync.Mutex
	err   error
}

// Wakeup records one signal.
func (n *Notifier) Wakeup() error {
	n.mu.Lock()
	err := n.err
	n.mu.Unlock()
	if err != nil {
		return err
	}
	n.count.Add(1)
	return nil
}

// Count returns the number of successful wakeups.
func (n *Notifier) Count() int64 {
	return n.count.Load()
}

// Take returns the number of wakeups since the last Take and resets it.
func (n *Notifier) Take() int64 {
	return n.count.Swap(0)
}

// SetError makes subsequent Wakeup calls fail with err.
func (n *Notifier) SetError(err error) {
	n.mu.Lock()
	n.err = err
	n.mu.Unlock()
}

// Scope is a standalone api.Scope backed by a fake Notifier.
type Scope struct {
	N   *Notifier
	Log *slog.Logger
	Obs api.Observer
}

// NewScope creates a scope with a fresh notifier and a discarding logger.
func NewScope() *Scope {
	return &Scope{
		N:   &Notifier{},
		Log: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Obs: api.NopObserver{},
	}
}

func (s *Scope) Notifier() api.Notifier { return s.N }
func (s *Scope) Logger() *slog.Logger   { return s.Log }
func (s *Scope) Observer() api.Observer { return s.Obs }
