// Package control
// Author: momentics <momentics@gmail.com>
//
// Configuration, logging, metrics and debug introspection layer of
// hioload-relay.
//
// Provides:
//   - YAML configuration with defaults and validation
//   - slog logger construction with a hot-reloadable level
//   - Prometheus-backed loop and relay metrics (api.Observer)
//   - A dynamic key/value store with reload listeners
//   - Debug probe registration and state export
package control
