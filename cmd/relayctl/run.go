package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/control"
	"github.com/momentics/hioload-relay/facade"
)

// runOptions are the knobs of the demo workload.
type runOptions struct {
	producers   int
	requests    int
	every       int
	metricsAddr string
	logOutput   io.Writer
}

var runFlags runOptions

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Relay requests from concurrent producers into job machines",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		opts := runFlags
		opts.logOutput = cmd.ErrOrStderr()
		return runRelay(ctx, cfg, opts, cmd.OutOrStdout())
	},
}

func init() {
	f := runCmd.Flags()
	f.IntVar(&runFlags.producers, "producers", 4, "number of producer goroutines")
	f.IntVar(&runFlags.requests, "requests", 1000, "requests sent by each producer")
	f.IntVar(&runFlags.every, "every", 10, "every K-th request becomes a job (0 disables)")
	f.StringVar(&runFlags.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	rootCmd.AddCommand(runCmd)
}

// request identifies one produced item.
type request struct {
	producer int
	seq      int
}

// job completes on its first wakeup.
type job struct {
	seed string
	done func()
}

func (j *job) Wakeup(sc api.Scope) api.Response[string] {
	sc.Logger().Debug("job finished", "seed", j.seed)
	j.done()
	return api.Done[string]()
}

func (j *job) Ready(api.EventSet, api.Scope) api.Response[string] { return api.Continue[string]() }
func (j *job) Timeout(api.Scope) api.Response[string]             { return api.Done[string]() }

// everyK turns every k-th drained request into a job seed. It runs on the
// loop goroutine only.
type everyK struct {
	k       int
	drained int
}

func (h *everyK) OnRequest(r request) (string, bool) {
	h.drained++
	if h.k <= 0 || h.drained%h.k != 0 {
		return "", false
	}
	return fmt.Sprintf("p%d-r%d", r.producer, r.seq), true
}

func runRelay(ctx context.Context, cfg *control.Config, opts runOptions, out io.Writer) (err error) {
	if opts.producers < 1 || opts.requests < 0 {
		return fmt.Errorf("producers must be positive and requests non-negative: %w", api.ErrInvalidConfig)
	}
	total := opts.producers * opts.requests
	expected := 0
	if opts.every > 0 {
		expected = total / opts.every
	}

	var jobs sync.WaitGroup
	jobs.Add(expected)
	factory := func(seed string, _ api.Scope) (api.Machine[string], error) {
		return &job{seed: seed, done: jobs.Done}, nil
	}

	var fopts []facade.Option
	if opts.logOutput != nil {
		fopts = append(fopts, facade.WithLogOutput(opts.logOutput))
	}
	rt, err := facade.New(cfg, factory, fopts...)
	if err != nil {
		return err
	}
	defer func() {
		if serr := rt.Shutdown(); serr != nil && err == nil {
			err = serr
		}
	}()

	if opts.metricsAddr != "" {
		stopMetrics, err := serveMetrics(rt, opts.metricsAddr)
		if err != nil {
			return err
		}
		defer stopMetrics()
	}

	tx, err := facade.AttachRelay[request, string](rt, &everyK{k: opts.every})
	if err != nil {
		return err
	}
	if err := rt.Start(ctx); err != nil {
		return err
	}

	started := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < opts.producers; p++ {
		h, err := tx.Clone()
		if err != nil {
			return err
		}
		pid := p
		g.Go(func() error {
			defer h.Close()
			for i := 0; i < opts.requests; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if err := h.Send(request{producer: pid, seq: i}); err != nil {
					return fmt.Errorf("producer %d: %w", pid, err)
				}
			}
			return nil
		})
	}
	if err := tx.Close(); err != nil {
		return err
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := waitIdle(ctx, rt, &jobs); err != nil {
		return err
	}
	rt.Logger().Info("relay drained",
		"requests", total, "jobs", expected, "elapsed", time.Since(started))
	printStats(out, rt.Control().Stats())
	return nil
}

// waitIdle blocks until every job has finished and the request machine has
// terminated.
func waitIdle(ctx context.Context, rt *facade.Runtime[string], jobs *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		jobs.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for rt.Loop().Len() > 0 {
		select {
		case <-tick.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func serveMetrics(rt *facade.Runtime[string], addr string) (func(), error) {
	m := rt.Metrics()
	if m == nil {
		return nil, fmt.Errorf("metrics-addr set but metrics are disabled: %w", api.ErrInvalidConfig)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			rt.Logger().Warn("metrics server failed", "error", err)
		}
	}()
	rt.Logger().Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

func printStats(w io.Writer, stats map[string]any) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "%s\t%v\n", k, stats[k])
	}
}
