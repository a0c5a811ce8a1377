package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestQueueProcessesJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	var mu sync.Mutex
	seen := make(map[string]bool)
	done := make(chan struct{}, 3)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		seen[job.Payload.(string)] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())

	for _, payload := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{Type: "promote", Payload: payload}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	q.Stop()

	assert.Len(t, seen, 3)
	assert.Equal(t, int64(3), q.Stats().Processed)
}

func TestQueueRetriesThenDrops(t *testing.T) {
	defer goleak.VerifyNone(t)

	var attempts atomic.Int32
	finished := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if attempts.Add(1) == 3 {
			close(finished)
		}
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{Type: "promote"}))
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for retries")
	}
	require.Eventually(t, func() bool { return q.Stats().Dropped == 1 }, time.Second, 5*time.Millisecond)
	q.Stop()

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, int64(3), q.Stats().Failed)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})

	err := q.Enqueue(Job{})

	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestQueueBackoffDoublesUpToCap(t *testing.T) {
	q := NewQueue("backoff", func(context.Context, Job) error { return nil }, QueueConfig{
		RetryDelay:    time.Second,
		MaxRetryDelay: 5 * time.Second,
	})

	assert.Equal(t, time.Second, q.backoff(1))
	assert.Equal(t, 2*time.Second, q.backoff(2))
	assert.Equal(t, 4*time.Second, q.backoff(3))
	assert.Equal(t, 5*time.Second, q.backoff(4))
	assert.Equal(t, 5*time.Second, q.backoff(10))
}
