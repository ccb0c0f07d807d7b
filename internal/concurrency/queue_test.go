package concurrency

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueue_FIFO(t *testing.T) {
	q := NewQueue[int]()
	_, ok := q.Pop()
	require.False(t, ok)

	for i := 0; i < 100; i++ {
		q.Push(i)
	}
	require.Equal(t, 100, q.Len())
	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		assert.Equal(t, i, v)
	}
	_, ok = q.Pop()
	assert.False(t, ok)
}

func TestQueue_Reset(t *testing.T) {
	q := NewQueue[string]()
	q.Push("a")
	q.Push("b")
	q.Reset()
	assert.Equal(t, 0, q.Len())
	_, ok := q.Pop()
	assert.False(t, ok)
}

func TestQueue_MPSC(t *testing.T) {
	q := NewQueue[[2]int]()
	producers := 8
	perProducer := 5000

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push([2]int{pid, i})
			}
		}(p)
	}
	wg.Wait()

	next := make([]int, producers)
	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		// per-producer order is preserved
		require.Equal(t, next[v[0]], v[1])
		next[v[0]]++
	}
	for p := 0; p < producers; p++ {
		assert.Equal(t, perProducer, next[p])
	}
}

func TestQueue_NilInterfaceValue(t *testing.T) {
	q := NewQueue[error]()
	q.Push(nil)
	v, ok := q.Pop()
	assert.True(t, ok)
	assert.Nil(t, v)
}
