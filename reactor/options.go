// File: reactor/options.go
// Package reactor defines functional options for Loop.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package reactor

import (
	"log/slog"

	"github.com/momentics/hioload-relay/api"
)

// Wake backend names accepted by WithWaker.
const (
	WakerAuto    = "auto"
	WakerEventfd = "eventfd"
	WakerChannel = "channel"
)

// Option customizes loop initialization.
type Option func(*options)

type options struct {
	name     string
	logger   *slog.Logger
	observer api.Observer
	waker    string
	probes   api.Debug
	cpu      int
}

func defaultOptions() options {
	return options{
		name:     "loop",
		logger:   slog.Default(),
		observer: api.NopObserver{},
		waker:    WakerAuto,
		cpu:      -1,
	}
}

// WithName sets the loop name used in logs and probe keys.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets the loop logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithObserver attaches lifecycle notifications, typically metrics.
func WithObserver(obs api.Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observer = obs
		}
	}
}

// WithWaker selects the wake backend: auto, eventfd or channel.
func WithWaker(kind string) Option {
	return func(o *options) {
		o.waker = kind
	}
}

// WithProbes registers loop probes on a debug registry.
func WithProbes(d api.Debug) Option {
	return func(o *options) {
		o.probes = d
	}
}

// WithCPU pins the goroutine running the loop to a logical CPU. A negative
// value leaves scheduling to the Go runtime.
func WithCPU(cpu int) Option {
	return func(o *options) {
		o.cpu = cpu
	}
}
