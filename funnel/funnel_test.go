package funnel_test

import (
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/momentics/hioload-relay/fake"
	"github.com/momentics/hioload-relay/funnel"
)

func TestFunnel_SendSignalsOncePerCall(t *testing.T) {
	n := &fake.Notifier{}
	tx, rx := funnel.New[int](n)

	for i := 0; i < 5; i++ {
		require.NoError(t, tx.Send(i))
	}
	assert.Equal(t, int64(5), n.Count())
	assert.Equal(t, 5, rx.Len())

	for i := 0; i < 5; i++ {
		v, err := rx.TryRecv()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, funnel.ErrEmpty)
}

func TestFunnel_DisconnectAfterLastClose(t *testing.T) {
	n := &fake.Notifier{}
	tx, rx := funnel.New[string](n)
	tx2, err := tx.Clone()
	require.NoError(t, err)

	require.NoError(t, tx.Send("a"))
	require.NoError(t, tx.Close())
	require.NoError(t, tx.Close()) // idempotent

	_, err = tx.Clone()
	assert.ErrorIs(t, err, funnel.ErrClosed)
	assert.ErrorIs(t, tx.Send("x"), funnel.ErrClosed)

	v, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, "a", v)
	_, err = rx.TryRecv()
	assert.ErrorIs(t, err, funnel.ErrEmpty, "a clone is still alive")

	require.NoError(t, tx2.Send("b"))
	before := n.Count()
	require.NoError(t, tx2.Close())
	assert.Equal(t, before+1, n.Count(), "last close wakes the consumer")

	// values sent before the last close still arrive first
	v, err = rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	_, err = rx.TryRecv()
	assert.ErrorIs(t, err, funnel.ErrDisconnected)
	_, err = rx.TryRecv()
	assert.ErrorIs(t, err, funnel.ErrDisconnected)
}

func TestFunnel_ReceiverClosed(t *testing.T) {
	tx, rx := funnel.New[int](&fake.Notifier{})
	require.NoError(t, tx.Send(1))
	rx.Close()
	rx.Close()
	assert.Equal(t, 0, rx.Len())
	assert.ErrorIs(t, tx.Send(2), funnel.ErrReceiverClosed)
	_, err := rx.TryRecv()
	assert.ErrorIs(t, err, funnel.ErrDisconnected)
}

func TestFunnel_NotifierFailureKeepsValue(t *testing.T) {
	n := &fake.Notifier{}
	boom := errors.New("loop gone")
	n.SetError(boom)
	tx, rx := funnel.New[int](n)

	err := tx.Send(7)
	require.ErrorIs(t, err, boom)
	v, err := rx.TryRecv()
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}

type item struct {
	producer int
	seq      int
}

func TestFunnel_ConcurrentProducersKeepPerProducerOrder(t *testing.T) {
	n := &fake.Notifier{}
	tx, rx := funnel.New[item](n)
	const producers = 4
	const perProducer = 2000

	var g errgroup.Group
	for p := 0; p < producers; p++ {
		h, err := tx.Clone()
		require.NoError(t, err)
		pid := p
		g.Go(func() error {
			defer h.Close()
			for i := 0; i < perProducer; i++ {
				if err := h.Send(item{producer: pid, seq: i}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	require.NoError(t, tx.Close())

	next := make([]int, producers)
	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	total := 0
	for {
		v, err := rx.TryRecv()
		if errors.Is(err, funnel.ErrEmpty) {
			runtime.Gosched()
			continue
		}
		if errors.Is(err, funnel.ErrDisconnected) {
			break
		}
		require.NoError(t, err)
		require.Equal(t, next[v.producer], v.seq)
		next[v.producer]++
		total++
	}
	require.NoError(t, <-done)
	assert.Equal(t, producers*perProducer, total)
	assert.GreaterOrEqual(t, n.Count(), int64(producers*perProducer))
}

func TestFunnel_Disconnected(t *testing.T) {
	tx, rx := funnel.New[int](&fake.Notifier{})
	assert.False(t, rx.Disconnected())
	require.NoError(t, tx.Send(1))
	require.NoError(t, tx.Close())
	assert.True(t, rx.Disconnected())
	assert.Equal(t, 1, rx.Len(), "queued values survive disconnection")
}
