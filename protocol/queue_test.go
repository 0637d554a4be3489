package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueRunsInPostOrder(t *testing.T) {
	q := NewQueue()
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Run(runCtx) }()

	var got []int
	for i := 0; i < 100; i++ {
		q.Post(func() { got = append(got, i) })
	}
	require.NoError(t, q.Call(context.Background(), func() {}))

	want := make([]int, 100)
	for i := range want {
		want[i] = i
	}
	assert.Equal(t, want, got)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestQueuePostFromJob(t *testing.T) {
	q := NewQueue()
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go q.Run(runCtx)

	var mu sync.Mutex
	var order []string
	q.Post(func() {
		mu.Lock()
		order = append(order, "outer")
		mu.Unlock()
		q.Post(func() {
			mu.Lock()
			order = append(order, "inner")
			mu.Unlock()
		})
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 2
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestQueueCallHonoursContext(t *testing.T) {
	q := NewQueue() // never run
	c, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, q.Call(c, func() {}), context.DeadlineExceeded)
}
