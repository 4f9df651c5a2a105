package engine

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string) task {
	return task{name: name, fn: func() {}}
}

func TestTaskQueue_FIFO(t *testing.T) {
	q := newTaskQueue()
	for _, name := range []string{"A", "B", "C"} {
		require.True(t, q.Enqueue(named(name)))
	}
	assert.Equal(t, 3, q.Len())

	for _, want := range []string{"A", "B", "C"} {
		got, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, want, got.name)
	}
	_, ok := q.TryDequeue()
	assert.False(t, ok)
}

func TestTaskQueue_SignalCoalesces(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(named("A"))
	q.Enqueue(named("B"))

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("no signal after enqueue")
	}
	select {
	case <-q.Wait():
		t.Fatal("second signal should have been coalesced")
	default:
	}
	assert.Equal(t, 2, q.Len())
}

func TestTaskQueue_Close(t *testing.T) {
	q := newTaskQueue()
	q.Enqueue(named("A"))
	q.Close()
	q.Close()

	assert.True(t, q.Closed())
	assert.False(t, q.Enqueue(named("B")), "enqueue after close must fail")

	got, ok := q.TryDequeue()
	require.True(t, ok, "queued work survives close")
	assert.Equal(t, "A", got.name)

	select {
	case <-q.Wait():
	case <-time.After(time.Second):
		t.Fatal("closed queue must release waiters")
	}
}

func TestTaskQueue_ConcurrentEnqueue(t *testing.T) {
	q := newTaskQueue()
	const goroutines = 20
	const each = 50

	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < each; j++ {
				q.Enqueue(named("x"))
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines*each, q.Len())
}
