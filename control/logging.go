// control/logging.go
// Author: momentics <momentics@gmail.com>
//
// slog logger construction with a level that can be changed at runtime.

package control

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/momentics/hioload-relay/api"
)

// ParseLevel maps a config level name onto slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("log.level %q: %w", s, api.ErrInvalidConfig)
	}
}

// NewLogger builds a text or JSON logger writing to w. The returned LevelVar
// controls the level of every logger derived from it.
func NewLogger(w io.Writer, cfg LogConfig) (*slog.Logger, *slog.LevelVar, error) {
	lvl, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	level := new(slog.LevelVar)
	level.Set(lvl)
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch cfg.Format {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	case "text", "":
		h = slog.NewTextHandler(w, opts)
	default:
		return nil, nil, fmt.Errorf("log.format %q: %w", cfg.Format, api.ErrInvalidConfig)
	}
	return slog.New(h), level, nil
}
