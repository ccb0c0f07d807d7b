package machines_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-relay/api"
	"github.com/momentics/hioload-relay/fake"
	"github.com/momentics/hioload-relay/machines"
)

func TestRequestMachine_DrainsInSendOrder(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, string]{}
	m, tx := machines.NewRequestMachine[int, string](h, scope)

	for i := 1; i <= 10; i++ {
		require.NoError(t, tx.Send(i))
	}
	resp := m.Wakeup(scope)
	assert.True(t, resp.IsContinue())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, h.Seen())

	// a second wakeup delivers nothing twice
	resp = m.Wakeup(scope)
	assert.True(t, resp.IsContinue())
	assert.Len(t, h.Seen(), 10)
}

func TestRequestMachine_EmptyWakeupContinues(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, string]{}
	m, _ := machines.NewRequestMachine[int, string](h, scope)

	resp := m.Spawned(scope)
	assert.True(t, resp.IsContinue())
	assert.Empty(t, h.Seen())
}

func TestRequestMachine_DisconnectTerminates(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, string]{}
	m, tx := machines.NewRequestMachine[int, string](h, scope)

	require.NoError(t, tx.Close())
	resp := m.Wakeup(scope)
	assert.True(t, resp.IsDone())

	// stays terminated without touching the handler again
	resp = m.Wakeup(scope)
	assert.True(t, resp.IsDone())
	assert.Empty(t, h.Seen())
}

func TestRequestMachine_DrainsBeforeDisconnect(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, string]{}
	m, tx := machines.NewRequestMachine[int, string](h, scope)

	require.NoError(t, tx.Send(1))
	require.NoError(t, tx.Send(2))
	require.NoError(t, tx.Close())

	resp := m.Wakeup(scope)
	assert.True(t, resp.IsDone())
	assert.Equal(t, []int{1, 2}, h.Seen())
}

func TestRequestMachine_SpawnReturnsAndReSignals(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, string]{
		Decide: func(r int) (string, bool) {
			if r == 3 {
				return "seed-3", true
			}
			return "", false
		},
	}
	m, tx := machines.NewRequestMachine[int, string](h, scope)
	for i := 1; i <= 6; i++ {
		require.NoError(t, tx.Send(i))
	}
	scope.N.Take()

	resp := m.Wakeup(scope)
	require.True(t, resp.IsSpawn())
	seed, ok := resp.Seed()
	require.True(t, ok)
	assert.Equal(t, "seed-3", seed)
	assert.Equal(t, []int{1, 2, 3}, h.Seen())
	assert.Equal(t, 3, m.Pending())
	assert.Equal(t, int64(1), scope.N.Take(), "remaining requests trigger a re-wakeup")

	resp = m.Wakeup(scope)
	assert.True(t, resp.IsContinue())
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6}, h.Seen())
}

func TestRequestMachine_NoReSignalWhenQueueEmpty(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, int]{
		Decide: func(r int) (int, bool) { return r * 10, true },
	}
	m, tx := machines.NewRequestMachine[int, int](h, scope)
	require.NoError(t, tx.Send(1))
	scope.N.Take()

	resp := m.Wakeup(scope)
	seed, ok := resp.Seed()
	require.True(t, ok)
	assert.Equal(t, 10, seed)
	assert.Equal(t, int64(0), scope.N.Take())
}

func TestRequestMachine_EndToEnd(t *testing.T) {
	scope := fake.NewScope()
	obs := &fake.Observer{}
	scope.Obs = obs
	h := &fake.Handler[string, string]{
		Decide: func(r string) (string, bool) {
			if r == "R2" {
				return "S", true
			}
			return "", false
		},
	}
	m, tx := machines.NewRequestMachine[string, string](h, scope)

	var g errgroup.Group
	g.Go(func() error {
		for _, r := range []string{"R1", "R2", "R3"} {
			if err := tx.Send(r); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, g.Wait())

	var seeds []string
	var last api.Response[string]
	for scope.N.Take() > 0 {
		last = m.Wakeup(scope)
		if s, ok := last.Seed(); ok {
			seeds = append(seeds, s)
		}
	}
	assert.Equal(t, []string{"R1", "R2", "R3"}, h.Seen())
	assert.Equal(t, []string{"S"}, seeds)
	assert.True(t, last.IsContinue())

	c := obs.Snapshot()
	assert.Equal(t, 3, c.Requests)
	assert.Equal(t, 1, c.RequestsWithSpawn)
}

func TestRequestMachine_TwoProducers(t *testing.T) {
	scope := fake.NewScope()
	type req struct{ p, seq int }
	h := &fake.Handler[req, int]{}
	m, tx := machines.NewRequestMachine[req, int](h, scope)

	const perProducer = 1000
	var g errgroup.Group
	for p := 0; p < 2; p++ {
		clone, err := tx.Clone()
		require.NoError(t, err)
		pid := p
		g.Go(func() error {
			defer clone.Close()
			for i := 0; i < perProducer; i++ {
				if err := clone.Send(req{pid, i}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, tx.Close())
	require.NoError(t, g.Wait())

	resp := m.Wakeup(scope)
	assert.True(t, resp.IsDone())

	next := [2]int{}
	for _, r := range h.Seen() {
		require.Equal(t, next[r.p], r.seq)
		next[r.p]++
	}
	assert.Equal(t, [2]int{perProducer, perProducer}, next)
}

func TestRequestMachine_IsWakeupOnly(t *testing.T) {
	scope := fake.NewScope()
	m, _ := machines.NewRequestMachine[int, int](api.HandlerFunc[int, int](func(int) (int, bool) { return 0, false }), scope)

	_, full := any(m).(api.Machine[int])
	assert.False(t, full, "request machines expose no ready/timeout transitions")
	_, waker := any(m).(api.Waker[int])
	assert.True(t, waker)
}

func TestRequestMachine_SpawnAfterDisconnectReSignals(t *testing.T) {
	scope := fake.NewScope()
	h := &fake.Handler[int, int]{
		Decide: func(r int) (int, bool) { return r, true },
	}
	m, tx := machines.NewRequestMachine[int, int](h, scope)
	require.NoError(t, tx.Send(1))
	require.NoError(t, tx.Close())
	scope.N.Take()

	resp := m.Wakeup(scope)
	require.True(t, resp.IsSpawn())
	assert.Equal(t, int64(1), scope.N.Take(), "termination is observed on the next dispatch")

	resp = m.Wakeup(scope)
	assert.True(t, resp.IsDone())
}
