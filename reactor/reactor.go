// File: reactor/reactor.go
// Author: momentics <momentics@gmail.com>
//
// Loop is a single-goroutine driver: producers only append events to an
// ingress slice and signal the wake backend; all machine code runs on the
// goroutine that called Run.

package reactor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.uber.org/multierr"

	"github.com/momentics/hioload-relay/affinity"
	"github.com/momentics/hioload-relay/api"
)

var (
	// ErrLoopClosed is returned by notifiers and registrations after Close.
	ErrLoopClosed = errors.New("reactor: loop closed")

	// ErrAlreadyRunning is returned by a second concurrent Run, and by Close
	// while Run is active.
	ErrAlreadyRunning = errors.New("reactor: loop already running")

	// ErrUnknownToken is returned when delivering to an unregistered token.
	ErrUnknownToken = errors.New("reactor: unknown token")
)

type eventKind uint8

const (
	evWakeup eventKind = iota
	evReady
	evTimeout
)

func (k eventKind) String() string {
	switch k {
	case evReady:
		return "ready"
	case evTimeout:
		return "timeout"
	default:
		return "wakeup"
	}
}

type event struct {
	token api.Token
	kind  eventKind
	set   api.EventSet
}

type entry[S any] struct {
	token   api.Token
	machine api.Machine[S]
	scope   *scope
}

// Loop hosts machines whose seeds are of type S.
type Loop[S any] struct {
	name    string
	factory api.Factory[S]
	log     *slog.Logger
	obs     api.Observer
	wake    *waker
	cpu     int

	mu      sync.Mutex
	entries map[api.Token]*entry[S]
	next    api.Token
	ingress []event
	spare   []event
	flagged map[api.Token]struct{}
	closed  bool

	running   atomic.Bool
	closeOnce sync.Once
}

var _ api.Registrar[int] = (*Loop[int])(nil)

// New creates a loop. factory is the create-by-seed path used for every
// Spawn response.
func New[S any](factory api.Factory[S], opts ...Option) (*Loop[S], error) {
	if factory == nil {
		return nil, fmt.Errorf("reactor: nil factory: %w", api.ErrInvalidConfig)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	log := o.logger.With("component", "reactor", "loop", o.name)
	w, err := newWaker(o.waker, log)
	if err != nil {
		return nil, err
	}
	l := &Loop[S]{
		name:    o.name,
		factory: factory,
		log:     log,
		obs:     o.observer,
		wake:    w,
		cpu:     o.cpu,
		entries: make(map[api.Token]*entry[S]),
		next:    1,
		flagged: make(map[api.Token]struct{}),
	}
	if o.probes != nil {
		o.probes.RegisterProbe(o.name+".machines", func() any { return l.Len() })
		o.probes.RegisterProbe(o.name+".pending", func() any { return l.Pending() })
		o.probes.RegisterProbe(o.name+".waker", func() any { return w.kind })
	}
	log.Debug("loop created", "waker", w.kind)
	return l, nil
}

// Name returns the loop name.
func (l *Loop[S]) Name() string {
	return l.name
}

// AddMachine registers a directly constructed machine.
func (l *Loop[S]) AddMachine(build func(api.Scope) (api.Machine[S], error)) (api.Token, error) {
	return l.add(func(sc *scope, _ api.Token) (api.Machine[S], error) {
		return build(sc)
	})
}

// AddWaker registers a wakeup-only machine such as a request machine.
func (l *Loop[S]) AddWaker(build func(api.Scope) (api.Waker[S], error)) (api.Token, error) {
	return l.add(func(sc *scope, tok api.Token) (api.Machine[S], error) {
		w, err := build(sc)
		if err != nil {
			return nil, err
		}
		return wakeOnly[S]{Waker: w, token: tok}, nil
	})
}

func (l *Loop[S]) add(build func(*scope, api.Token) (api.Machine[S], error)) (api.Token, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return 0, ErrLoopClosed
	}
	tok := l.next
	l.next++
	l.mu.Unlock()

	sc := l.newScope(tok)
	m, err := build(sc, tok)
	if err != nil {
		return 0, err
	}
	if err := l.insert(&entry[S]{token: tok, machine: m, scope: sc}); err != nil {
		return 0, err
	}
	return tok, nil
}

func (l *Loop[S]) newScope(tok api.Token) *scope {
	return &scope{
		notifier: Notifier{loop: l, token: tok},
		log:      l.log.With("token", uint64(tok)),
		obs:      l.obs,
	}
}

// insert publishes e and queues the wakeup that completes its construction.
func (l *Loop[S]) insert(e *entry[S]) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	l.entries[e.token] = e
	l.mu.Unlock()
	l.obs.MachineAdded()
	return e.scope.notifier.Wakeup()
}

// DeliverReady queues a readiness event for tok. It is the hook for an
// external poller.
func (l *Loop[S]) DeliverReady(tok api.Token, events api.EventSet) error {
	return l.deliver(event{token: tok, kind: evReady, set: events})
}

// DeliverTimeout queues a timeout for tok. It is the hook for an external
// timer wheel.
func (l *Loop[S]) DeliverTimeout(tok api.Token) error {
	return l.deliver(event{token: tok, kind: evTimeout})
}

func (l *Loop[S]) deliver(ev event) error {
	l.mu.Lock()
	_, ok := l.entries[ev.token]
	l.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownToken, ev.token)
	}
	return l.post(ev)
}

func (l *Loop[S]) post(ev event) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrLoopClosed
	}
	if ev.kind == evWakeup {
		if _, dup := l.flagged[ev.token]; dup {
			l.mu.Unlock()
			return nil
		}
		l.flagged[ev.token] = struct{}{}
	}
	l.ingress = append(l.ingress, ev)
	l.mu.Unlock()
	return l.wake.wake()
}

// Len returns the number of registered machines.
func (l *Loop[S]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Pending returns the number of queued, undispatched events.
func (l *Loop[S]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ingress)
}

// takeIngress swaps the ingress with the spare buffer.
func (l *Loop[S]) takeIngress() []event {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.ingress
	l.ingress = l.spare[:0]
	l.spare = batch
	return batch
}

// Run dispatches events until ctx is done, the loop is closed, or a machine
// receives a transition it can never accept. In the last case the
// *api.TransitionError is returned and the loop must not be run again.
func (l *Loop[S]) Run(ctx context.Context) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer l.running.Store(false)

	stop := context.AfterFunc(ctx, func() { _ = l.wake.wake() })
	defer stop()

	if l.cpu >= 0 {
		unpin, err := affinity.PinGoroutine(l.cpu)
		if err != nil {
			l.log.Warn("cpu affinity not applied", "cpu", l.cpu, "error", err)
		} else {
			defer func() {
				if err := unpin(); err != nil {
					l.log.Warn("cpu affinity not restored", "error", err)
				}
			}()
		}
	}

	l.log.Info("loop started", "cpu", l.cpu)
	defer l.log.Info("loop stopped")
	for {
		if ctx.Err() != nil {
			return nil
		}
		l.mu.Lock()
		closed := l.closed
		l.mu.Unlock()
		if closed {
			return ErrLoopClosed
		}

		batch := l.takeIngress()
		if len(batch) == 0 {
			if err := l.wake.wait(); err != nil {
				return fmt.Errorf("reactor: wait: %w", err)
			}
			continue
		}
		for i, ev := range batch {
			if err := l.dispatch(ev); err != nil {
				l.log.Error("fatal machine misuse, stopping loop", "error", err)
				l.fail()
				return err
			}
			batch[i] = event{}
		}
	}
}

// fail marks the loop closed after a fatal error so notifiers report it.
func (l *Loop[S]) fail() {
	l.mu.Lock()
	l.closed = true
	l.ingress = nil
	l.mu.Unlock()
}

func (l *Loop[S]) dispatch(ev event) error {
	l.mu.Lock()
	e := l.entries[ev.token]
	if ev.kind == evWakeup {
		// cleared before the call so a wakeup raised inside it is kept
		delete(l.flagged, ev.token)
	}
	l.mu.Unlock()
	if e == nil {
		return nil
	}
	resp, err := l.invoke(e, ev)
	if err != nil {
		return err
	}
	l.apply(e, resp)
	return nil
}

func (l *Loop[S]) invoke(e *entry[S], ev event) (resp api.Response[S], err error) {
	defer func() {
		if r := recover(); r != nil {
			te, ok := r.(*api.TransitionError)
			if !ok {
				panic(r)
			}
			err = te
		}
	}()
	switch ev.kind {
	case evReady:
		return e.machine.Ready(ev.set, e.scope), nil
	case evTimeout:
		return e.machine.Timeout(e.scope), nil
	default:
		l.obs.Wakeup()
		return e.machine.Wakeup(e.scope), nil
	}
}

func (l *Loop[S]) apply(e *entry[S], resp api.Response[S]) {
	switch {
	case resp.IsSpawn():
		seed, _ := resp.Seed()
		l.spawn(seed)
	case resp.IsDone():
		l.remove(e)
	}
}

func (l *Loop[S]) spawn(seed S) {
	l.mu.Lock()
	tok := l.next
	l.next++
	l.mu.Unlock()

	sc := l.newScope(tok)
	m, err := l.factory(seed, sc)
	if err != nil {
		l.obs.SpawnFailed()
		l.log.Warn("seed rejected by factory", "error", err)
		return
	}
	if err := l.insert(&entry[S]{token: tok, machine: m, scope: sc}); err != nil {
		l.log.Warn("spawned machine not registered", "error", err)
		return
	}
	l.obs.Spawned()
}

func (l *Loop[S]) remove(e *entry[S]) {
	l.mu.Lock()
	delete(l.entries, e.token)
	delete(l.flagged, e.token)
	l.mu.Unlock()
	l.obs.MachineRemoved()
	if err := closeMachine(e.machine); err != nil {
		e.scope.log.Warn("machine close failed", "error", err)
	}
	e.scope.log.Debug("machine done")
}

func closeMachine[S any](m api.Machine[S]) error {
	var target any = m
	if w, ok := m.(wakeOnly[S]); ok {
		target = w.Waker
	}
	if c, ok := target.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close drops every machine and releases the wake backend. It must not be
// called while Run is active.
func (l *Loop[S]) Close() error {
	if l.running.Load() {
		return ErrAlreadyRunning
	}
	l.mu.Lock()
	l.closed = true
	entries := l.entries
	l.entries = make(map[api.Token]*entry[S])
	l.ingress = nil
	l.mu.Unlock()

	var err error
	for _, e := range entries {
		l.obs.MachineRemoved()
		err = multierr.Append(err, closeMachine(e.machine))
	}
	l.closeOnce.Do(func() {
		err = multierr.Append(err, l.wake.backend.close())
	})
	return err
}
