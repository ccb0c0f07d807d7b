// File: reactor/waker.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Wake backends. A backend keeps at most one pending signal; wait returns
// immediately if a signal arrived since the previous wait.

package reactor

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/momentics/hioload-relay/api"
)

type wakeBackend interface {
	signal() error
	wait() error
	close() error
}

// waker coalesces signals: only the first signal after a wait reaches the
// backend.
type waker struct {
	backend wakeBackend
	kind    string
	pending atomic.Bool
}

func (w *waker) wake() error {
	if !w.pending.CompareAndSwap(false, true) {
		return nil
	}
	if err := w.backend.signal(); err != nil {
		w.pending.Store(false)
		return err
	}
	return nil
}

// wait blocks until woken. The flag is cleared before the caller inspects
// its ingress, so a signal racing with that inspection is never lost.
func (w *waker) wait() error {
	err := w.backend.wait()
	w.pending.Store(false)
	return err
}

func newWaker(kind string, log *slog.Logger) (*waker, error) {
	switch kind {
	case WakerChannel:
		return &waker{backend: newChannelBackend(), kind: WakerChannel}, nil
	case WakerEventfd:
		b, err := newEventfdBackend()
		if err != nil {
			return nil, err
		}
		return &waker{backend: b, kind: WakerEventfd}, nil
	case WakerAuto, "":
		if eventfdSupported {
			b, err := newEventfdBackend()
			if err == nil {
				return &waker{backend: b, kind: WakerEventfd}, nil
			}
			log.Warn("eventfd waker unavailable, falling back to channel", "error", err)
		}
		return &waker{backend: newChannelBackend(), kind: WakerChannel}, nil
	default:
		return nil, fmt.Errorf("reactor: unknown waker %q: %w", kind, api.ErrInvalidConfig)
	}
}

type channelBackend struct {
	ch chan struct{}
}

func newChannelBackend() *channelBackend {
	return &channelBackend{ch: make(chan struct{}, 1)}
}

func (c *channelBackend) signal() error {
	select {
	case c.ch <- struct{}{}:
	default:
	}
	return nil
}

func (c *channelBackend) wait() error {
	<-c.ch
	return nil
}

func (c *channelBackend) close() error { return nil }
