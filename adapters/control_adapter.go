// Package adapters
// Author: momentics <momentics@gmail.com>
//
// Control adapter implementing api.Control using control package primitives.

package adapters

import (
	"fmt"
	"log/slog"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/control"
)

var _ api.Control = (*ControlAdapter)(nil)

// ControlAdapter exposes runtime configuration, metrics and probes. Setting
// "log.level" changes the level of every logger built from level.
type ControlAdapter struct {
	config  *control.ConfigStore
	metrics *control.Metrics
	debug   *control.DebugProbes
	level   *slog.LevelVar
}

// NewControlAdapter builds the adapter. metrics and level may be nil.
func NewControlAdapter(cfg *control.Config, metrics *control.Metrics, level *slog.LevelVar) *ControlAdapter {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	adapter := &ControlAdapter{
		config:  control.NewConfigStore(cfg.Flatten()),
		metrics: metrics,
		debug:   control.NewDebugProbes(),
		level:   level,
	}
	control.RegisterPlatformProbes(adapter.debug)
	return adapter
}

func (c *ControlAdapter) GetConfig() map[string]any {
	return c.config.GetSnapshot()
}

// SetConfig validates known keys before storing anything.
func (c *ControlAdapter) SetConfig(cfg map[string]any) error {
	if raw, ok := cfg["log.level"]; ok {
		s, isString := raw.(string)
		if !isString {
			return fmt.Errorf("log.level must be a string: %w", api.ErrInvalidConfig)
		}
		lvl, err := control.ParseLevel(s)
		if err != nil {
			return err
		}
		if c.level != nil {
			c.level.Set(lvl)
		}
	}
	c.config.SetConfig(cfg)
	return nil
}

func (c *ControlAdapter) Stats() map[string]any {
	combined := make(map[string]any)
	if c.metrics != nil {
		for k, v := range c.metrics.Snapshot() {
			combined[k] = v
		}
	}
	for k, v := range c.debug.DumpState() {
		combined["debug."+k] = v
	}
	return combined
}

func (c *ControlAdapter) OnReload(fn func()) {
	c.config.OnReload(fn)
}

func (c *ControlAdapter) RegisterDebugProbe(name string, fn func() any) {
	c.debug.RegisterProbe(name, fn)
}

// Debug returns the probe registry, for components that register their own
// probes such as the loop.
func (c *ControlAdapter) Debug() *control.DebugProbes {
	return c.debug
}
