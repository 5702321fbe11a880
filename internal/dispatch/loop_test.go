package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoop_DrainRunsInOrder(t *testing.T) {
	l := NewLoop()
	var order []int

	for i := 1; i <= 3; i++ {
		n := i
		require.True(t, l.Post(func() { order = append(order, n) }))
	}

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, 3, l.Drain())
	assert.Equal(t, []int{1, 2, 3}, order)
	assert.Equal(t, 0, l.Len())
}

func TestLoop_DrainIncludesFollowUps(t *testing.T) {
	l := NewLoop()
	var order []string

	l.Post(func() {
		order = append(order, "first")
		l.Post(func() { order = append(order, "follow-up") })
	})

	assert.Equal(t, 2, l.Drain())
	assert.Equal(t, []string{"first", "follow-up"}, order)
}

func TestLoop_PostAfterStop(t *testing.T) {
	l := NewLoop()
	l.Stop()
	assert.False(t, l.Post(func() {}))
	l.Stop() // idempotent
}

func TestLoop_PanickingTaskDoesNotStopLoop(t *testing.T) {
	l := NewLoop()
	ran := false

	l.Post(func() { panic("boom") })
	l.Post(func() { ran = true })

	assert.Equal(t, 2, l.Drain())
	assert.True(t, ran)
}

func TestLoop_RunProcessesPostsFromOtherGoroutines(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			l.Post(func() {
				mu.Lock()
				got = append(got, n)
				mu.Unlock()
			})
		}(i)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 10
	}, time.Second, 5*time.Millisecond)

	l.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.False(t, l.Post(func() {}), "cancelled loop rejects posts")
}
