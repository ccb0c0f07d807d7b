// control/config.go
// Author: momentics <momentics@gmail.com>
//
// Static relay configuration loaded from YAML.

package control

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/momentics/hioload-relay/api"
)

// Config holds parameters immutable per run. The log level may still be
// changed at runtime through api.Control.
type Config struct {
	Name    string        `yaml:"name"`
	Loop    LoopConfig    `yaml:"loop"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoopConfig configures the event loop.
type LoopConfig struct {
	// Waker selects the wake backend: auto, eventfd or channel.
	Waker string `yaml:"waker"`
	// CPU pins the loop goroutine to a logical CPU; -1 disables pinning.
	CPU int `yaml:"cpu"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// MetricsConfig configures prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		Name: "relay",
		Loop: LoopConfig{Waker: "auto", CPU: -1},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "hioload_relay",
		},
	}
}

// LoadConfig reads a YAML file on top of the defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML on top of the defaults. Unknown keys are rejected.
func ParseConfig(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values.
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("name must not be empty: %w", api.ErrInvalidConfig)
	}
	switch c.Loop.Waker {
	case "auto", "eventfd", "channel":
	default:
		return fmt.Errorf("loop.waker %q: %w", c.Loop.Waker, api.ErrInvalidConfig)
	}
	if c.Loop.CPU < -1 {
		return fmt.Errorf("loop.cpu %d: %w", c.Loop.CPU, api.ErrInvalidConfig)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q: %w", c.Log.Format, api.ErrInvalidConfig)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("metrics.namespace must not be empty: %w", api.ErrInvalidConfig)
	}
	return nil
}

// Marshal renders the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Flatten exposes the configuration as dotted keys for api.Control.
func (c *Config) Flatten() map[string]any {
	return map[string]any{
		"name":              c.Name,
		"loop.waker":        c.Loop.Waker,
		"loop.cpu":          c.Loop.CPU,
		"log.level":         c.Log.Level,
		"log.format":        c.Log.Format,
		"metrics.enabled":   c.Metrics.Enabled,
		"metrics.namespace": c.Metrics.Namespace,
	}
}
