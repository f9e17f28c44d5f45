package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestQueueProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	done := make(chan struct{}, 3)

	q := NewQueue("test", func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.ID] = true
		mu.Unlock()
		done <- struct{}{}
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "optimization"}))
	}
	for i := 0; i < 3; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}

	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
	assert.Eventually(t, func() bool { return q.Stats().Processed == 3 }, time.Second, 10*time.Millisecond)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	attempts := make(chan int, 4)
	q := NewQueue("retry", func(_ context.Context, job Job) error {
		attempts <- job.Attempt
		return errors.New("boom")
	}, QueueConfig{Workers: 1, MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "job-1"}))
	assert.Equal(t, 0, <-attempts)
	assert.Equal(t, 1, <-attempts)
	assert.Eventually(t, func() bool { return q.Stats().Failed == 1 }, time.Second, 5*time.Millisecond)
	q.Stop()

	stats := q.Stats()
	assert.Equal(t, int64(1), stats.Retried)
	assert.Zero(t, stats.Processed)
}

func TestEnqueueRequiresRunningQueue(t *testing.T) {
	q := NewQueue("idle", func(context.Context, Job) error { return nil }, QueueConfig{})
	assert.ErrorIs(t, q.Enqueue(Job{ID: "x"}), ErrNotStarted)

	q.Start(context.Background())
	q.Stop()
	assert.ErrorIs(t, q.Enqueue(Job{ID: "y"}), ErrNotStarted)
}

func TestStopCancelsPendingRetry(t *testing.T) {
	called := make(chan struct{}, 1)
	q := NewQueue("slow-retry", func(context.Context, Job) error {
		called <- struct{}{}
		return errors.New("fail")
	}, QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: time.Hour})
	q.Start(context.Background())
	require.NoError(t, q.Enqueue(Job{ID: "job"}))
	<-called
	q.Stop()
}
