// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for hioload-relay: the unbounded MPSC queue that
// carries requests from producer goroutines into the single-threaded loop.
package concurrency
