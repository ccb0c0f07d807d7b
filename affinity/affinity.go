// File: affinity/affinity.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral API for CPU affinity. Platform-specific implementations are located
// in separate files guarded by build tags.

package affinity

import "runtime"

// SetAffinity pins the current OS thread to a given logical CPU. On
// unsupported platforms it returns an error wrapping api.ErrNotSupported.
func SetAffinity(cpuID int) error {
	_, err := setAffinityPlatform(cpuID)
	return err
}

// PinGoroutine locks the calling goroutine to its OS thread and pins that
// thread to cpuID. unpin restores the previous mask and unlocks the thread;
// it must run on the same goroutine.
func PinGoroutine(cpuID int) (unpin func() error, err error) {
	runtime.LockOSThread()
	restore, err := setAffinityPlatform(cpuID)
	if err != nil {
		runtime.UnlockOSThread()
		return nil, err
	}
	return func() error {
		defer runtime.UnlockOSThread()
		return restore()
	}, nil
}
