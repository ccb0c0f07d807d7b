//go:build !linux

// File: affinity/affinity_stub.go
// Author: momentics <momentics@gmail.com>
//
// Stub implementation for unsupported platforms.

package affinity

import (
	"fmt"

	"github.com/momentics/hioload-relay/api"
)

func setAffinityPlatform(cpuID int) (func() error, error) {
	return nil, fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrNotSupported)
}

// Allowed is not supported on this platform.
func Allowed() ([]int, error) {
	return nil, api.ErrNotSupported
}
