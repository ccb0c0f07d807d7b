//go:build !linux
// +build !linux

// File: reactor/reactor_stub.go
// Author: momentics <momentics@gmail.com>
//
// Platforms without eventfd use the channel backend.

package reactor

import (
	"fmt"

	"github.com/momentics/hioload-relay/api"
)

const eventfdSupported = false

func newEventfdBackend() (wakeBackend, error) {
	return nil, fmt.Errorf("reactor: eventfd waker: %w", api.ErrNotSupported)
}
