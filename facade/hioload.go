// File: facade/hioload.go
// Unified facade layer for hioload-relay.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Runtime aggregates the components of a relay process behind one value: the
// slog logger built from configuration, prometheus metrics, debug probes, the
// control adapter and the event loop. It exposes Start, Wait and Shutdown.

package facade

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/momentics/hioload-relay/adapters"
	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/control"
	"github.com/momentics/hioload-relay/funnel"
	"github.com/momentics/hioload-relay/machines"
	"github.com/momentics/hioload-relay/reactor"
)

// ErrNotStarted is returned by Wait before Start.
var ErrNotStarted = errors.New("facade: runtime not started")

// Option tunes Runtime construction.
type Option func(*options)

type options struct {
	logOutput io.Writer
}

// WithLogOutput redirects the runtime logger. The default is os.Stderr.
func WithLogOutput(w io.Writer) Option {
	return func(o *options) { o.logOutput = w }
}

// Runtime is the main facade type.
type Runtime[S any] struct {
	id      uuid.UUID
	config  *control.Config
	log     *slog.Logger
	metrics *control.Metrics
	control *adapters.ControlAdapter
	loop    *reactor.Loop[S]

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	runErr  error

	shutdownOnce sync.Once
	shutdownErr  error
}

var _ api.GracefulShutdown = (*Runtime[int])(nil)

// New builds a runtime hosting machines created from seeds of type S.
func New[S any](cfg *control.Config, factory api.Factory[S], opts ...Option) (*Runtime[S], error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{logOutput: os.Stderr}
	for _, opt := range opts {
		opt(&o)
	}

	logger, level, err := control.NewLogger(o.logOutput, cfg.Log)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	logger = logger.With("runtime", id.String())

	var (
		metrics  *control.Metrics
		observer api.Observer = api.NopObserver{}
	)
	if cfg.Metrics.Enabled {
		metrics = control.NewMetrics(cfg.Metrics.Namespace, cfg.Name)
		observer = metrics
	}
	ctrl := adapters.NewControlAdapter(cfg, metrics, level)
	ctrl.RegisterDebugProbe("runtime.id", func() any { return id.String() })

	loop, err := reactor.New(factory,
		reactor.WithName(cfg.Name),
		reactor.WithLogger(logger),
		reactor.WithObserver(observer),
		reactor.WithWaker(cfg.Loop.Waker),
		reactor.WithCPU(cfg.Loop.CPU),
		reactor.WithProbes(ctrl.Debug()),
	)
	if err != nil {
		return nil, err
	}
	return &Runtime[S]{
		id:      id,
		config:  cfg,
		log:     logger,
		metrics: metrics,
		control: ctrl,
		loop:    loop,
	}, nil
}

// ID identifies this runtime instance in logs and probes.
func (r *Runtime[S]) ID() uuid.UUID { return r.id }

// Loop returns the event loop, for registering machines.
func (r *Runtime[S]) Loop() *reactor.Loop[S] { return r.loop }

// Control returns the Control interface for dynamic config and metrics.
func (r *Runtime[S]) Control() api.Control { return r.control }

// Logger returns the runtime logger.
func (r *Runtime[S]) Logger() *slog.Logger { return r.log }

// Metrics returns the prometheus collectors, or nil when disabled.
func (r *Runtime[S]) Metrics() *control.Metrics { return r.metrics }

// Start runs the loop on a new goroutine. Subsequent calls have no effect.
func (r *Runtime[S]) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	r.started = true

	go func() {
		defer close(r.done)
		err := r.loop.Run(ctx)
		if err != nil {
			r.log.Error("loop exited", "error", err)
		}
		r.mu.Lock()
		r.runErr = err
		r.mu.Unlock()
	}()
	r.log.Info("runtime started", "name", r.config.Name, "waker", r.config.Loop.Waker)
	return nil
}

// Wait blocks until the loop returns and reports its error.
func (r *Runtime[S]) Wait() error {
	r.mu.Lock()
	done := r.done
	r.mu.Unlock()
	if done == nil {
		return ErrNotStarted
	}
	<-done
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runErr
}

// Shutdown stops the loop, waits for it and releases every machine. A fatal
// loop error is reported together with close errors.
func (r *Runtime[S]) Shutdown() error {
	r.shutdownOnce.Do(func() {
		r.mu.Lock()
		cancel := r.cancel
		r.mu.Unlock()

		var err error
		if cancel != nil {
			cancel()
			err = r.Wait()
		}
		r.shutdownErr = multierr.Append(err, r.loop.Close())
		r.log.Info("runtime stopped")
	})
	return r.shutdownErr
}

// AttachRelay registers a request machine for handler on the runtime loop
// and returns the producer handle.
func AttachRelay[R, S any](r *Runtime[S], handler api.RequestHandler[R, S]) (*funnel.Funnel[R], error) {
	return machines.Attach[R, S](r.loop, handler)
}
