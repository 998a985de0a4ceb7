package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueDispatchesByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	var handled int32
	q.Handle("ping", func(_ context.Context, job Job) error {
		assert.NotEmpty(t, job.ID)
		atomic.AddInt32(&handled, 1)
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{Type: "ping"}))
	}
	require.NoError(t, q.Enqueue(Job{Type: "unknown"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(5), atomic.LoadInt32(&handled))
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: time.Millisecond})
	var attempts int32
	q.Handle("flaky", func(context.Context, Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("boom")
		}
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueGivesUpAfterRetries(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond})
	var attempts int32
	q.Handle("broken", func(context.Context, Job) error {
		atomic.AddInt32(&attempts, 1)
		return errors.New("boom")
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "broken"}))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, q.Drain(ctx))
	assert.Equal(t, int32(2), atomic.LoadInt32(&attempts))
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "ping"}))
}
