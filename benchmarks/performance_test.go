// Package benchmarks
// Author: momentics <momentics@gmail.com>
//
// Performance benchmarks for hioload-relay components.

package benchmarks

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/control"
	"github.com/momentics/hioload-relay/facade"
	"github.com/momentics/hioload-relay/fake"
	"github.com/momentics/hioload-relay/funnel"
	"github.com/momentics/hioload-relay/internal/concurrency"
)

// BenchmarkQueuePushPop measures the locked FIFO under parallel producers.
func BenchmarkQueuePushPop(b *testing.B) {
	q := concurrency.NewQueue[int]()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			q.Push(i)
			q.Pop()
			i++
		}
	})
}

// BenchmarkFunnelSend measures send cost with a counting notifier.
func BenchmarkFunnelSend(b *testing.B) {
	tx, rx := funnel.New[int](&fake.Notifier{})
	defer rx.Close()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		h, err := tx.Clone()
		if err != nil {
			b.Error(err)
			return
		}
		defer h.Close()
		for pb.Next() {
			if err := h.Send(1); err != nil {
				b.Error(err)
				return
			}
		}
	})
}

type benchJob struct{ wg *sync.WaitGroup }

func (j benchJob) Wakeup(api.Scope) api.Response[int] {
	j.wg.Done()
	return api.Done[int]()
}

func (j benchJob) Ready(api.EventSet, api.Scope) api.Response[int] { return api.Continue[int]() }
func (j benchJob) Timeout(api.Scope) api.Response[int]             { return api.Done[int]() }

// BenchmarkRuntimeRelay measures end-to-end request to job latency through
// the loop, one job per request.
func BenchmarkRuntimeRelay(b *testing.B) {
	for _, waker := range []string{"channel", "auto"} {
		b.Run(waker, func(b *testing.B) {
			var jobs sync.WaitGroup
			cfg := control.DefaultConfig()
			cfg.Loop.Waker = waker
			cfg.Log.Level = "error"
			rt, err := facade.New(cfg, func(int, api.Scope) (api.Machine[int], error) {
				return benchJob{wg: &jobs}, nil
			}, facade.WithLogOutput(io.Discard))
			if err != nil {
				b.Fatal(err)
			}
			defer rt.Shutdown()

			tx, err := facade.AttachRelay[int, int](rt, api.HandlerFunc[int, int](func(r int) (int, bool) {
				return r, true
			}))
			if err != nil {
				b.Fatal(err)
			}
			if err := rt.Start(context.Background()); err != nil {
				b.Fatal(err)
			}

			b.ResetTimer()
			jobs.Add(b.N)
			for i := 0; i < b.N; i++ {
				if err := tx.Send(i); err != nil {
					b.Fatal(err)
				}
			}
			jobs.Wait()
			b.StopTimer()
			_ = tx.Close()
		})
	}
}
