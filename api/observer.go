// File: api/observer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Observer receives loop and relay lifecycle notifications for metrics.

package api

// Observer receives notifications mostly from the loop goroutine;
// registrations made elsewhere report MachineAdded from the calling
// goroutine, so implementations must be safe for concurrent use.
type Observer interface {
	MachineAdded()
	MachineRemoved()
	Wakeup()
	Spawned()
	SpawnFailed()
	RequestDrained(spawned bool)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) MachineAdded()       {}
func (NopObserver) MachineRemoved()     {}
func (NopObserver) Wakeup()             {}
func (NopObserver) Spawned()            {}
func (NopObserver) SpawnFailed()        {}
func (NopObserver) RequestDrained(bool) {}
