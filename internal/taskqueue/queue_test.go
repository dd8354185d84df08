package taskqueue

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedTasks(t *testing.T) {
	pool := New(2, 4)
	pool.Start(context.Background())

	var ran atomic.Int32
	done := make(chan struct{})
	for i := 0; i < 3; i++ {
		err := pool.Submit(Task{Name: "t", Run: func(ctx context.Context) error {
			if ran.Add(1) == 3 {
				close(done)
			}
			return nil
		}})
		require.NoError(t, err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("tasks did not run")
	}
	pool.Stop()
	require.Equal(t, int32(3), ran.Load())
}

func TestPoolRejectsWhenFull(t *testing.T) {
	pool := New(1, 1)
	pool.Start(context.Background())
	defer pool.Stop()

	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(Task{Name: "blocker", Run: func(ctx context.Context) error {
		close(started)
		<-block
		return nil
	}}))
	<-started
	// Worker busy; one slot in the queue, the next submit overflows.
	require.NoError(t, pool.Submit(Task{Name: "queued", Run: func(ctx context.Context) error { return nil }}))
	err := pool.Submit(Task{Name: "overflow", Run: func(ctx context.Context) error { return nil }})
	require.ErrorIs(t, err, ErrQueueFull)
	close(block)
}

func TestPoolStopWaitsAndRejects(t *testing.T) {
	pool := New(1, 2)
	pool.Start(context.Background())

	var ran atomic.Bool
	require.NoError(t, pool.Submit(Task{Name: "t", Run: func(ctx context.Context) error {
		time.Sleep(50 * time.Millisecond)
		ran.Store(true)
		return nil
	}}))
	pool.Stop()
	require.True(t, ran.Load())
	require.ErrorIs(t, pool.Submit(Task{Name: "late"}), ErrStopped)
}
