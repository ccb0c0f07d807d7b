//go:build linux

// File: affinity/affinity_linux.go
// Author: momentics <momentics@gmail.com>
//
// Linux-specific implementation for setting thread CPU affinity.

package affinity

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-relay/api"
)

// setAffinityPlatform pins the calling thread and returns a function that
// restores the mask it had before.
func setAffinityPlatform(cpuID int) (func() error, error) {
	if cpuID < 0 {
		return nil, fmt.Errorf("affinity: cpu %d: %w", cpuID, api.ErrInvalidConfig)
	}
	var prev unix.CPUSet
	// pid 0 is the calling thread
	if err := unix.SchedGetaffinity(0, &prev); err != nil {
		return nil, fmt.Errorf("affinity: sched_getaffinity: %w", err)
	}
	var set unix.CPUSet
	set.Zero()
	set.Set(cpuID)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return nil, fmt.Errorf("affinity: sched_setaffinity cpu %d: %w", cpuID, err)
	}
	return func() error {
		return unix.SchedSetaffinity(0, &prev)
	}, nil
}

// Allowed reports the CPUs the calling thread may run on.
func Allowed() ([]int, error) {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return nil, err
	}
	var cpus []int
	for i := 0; i < len(set)*64; i++ {
		if set.IsSet(i) {
			cpus = append(cpus, i)
		}
	}
	return cpus, nil
}
