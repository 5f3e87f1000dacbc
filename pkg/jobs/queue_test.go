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

func TestQueueRunsHandlerByType(t *testing.T) {
	q := NewQueue("test", QueueConfig{Workers: 2})
	done := make(chan Job, 1)
	q.Handle("backup.startup", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	id, err := q.Enqueue("backup.startup")
	require.NoError(t, err)

	select {
	case job := <-done:
		assert.Equal(t, id, job.ID)
		assert.Equal(t, 0, job.Attempt)
		assert.False(t, job.Enqueued.IsZero())
	case <-time.After(2 * time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	var calls int32
	succeeded := make(chan int, 1)
	q.Handle("flaky", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("busy")
		}
		succeeded <- job.Attempt
		return nil
	})
	q.Start(context.Background())
	defer q.Stop()

	_, err := q.Enqueue("flaky")
	require.NoError(t, err)

	select {
	case attempt := <-succeeded:
		assert.Equal(t, 2, attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
}

func TestQueueGivesUpAfterMaxRetries(t *testing.T) {
	q := NewQueue("test", QueueConfig{MaxRetries: 1, RetryDelay: 5 * time.Millisecond})
	var calls int32
	q.Handle("broken", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("broken")
	})
	q.Start(context.Background())

	_, err := q.Enqueue("broken")
	require.NoError(t, err)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	q.Stop()
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestQueueSchedule(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	var calls int32
	q.Handle("tick", func(ctx context.Context, job Job) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	assert.Error(t, q.Schedule("tick", time.Millisecond))

	q.Start(context.Background())
	require.NoError(t, q.Schedule("tick", 0))
	require.NoError(t, q.Schedule("tick", 5*time.Millisecond))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	q.Stop()
}

func TestQueueRejectsBeforeStartAndAfterStop(t *testing.T) {
	q := NewQueue("test", QueueConfig{})
	_, err := q.Enqueue("x")
	assert.Error(t, err)

	q.Start(context.Background())
	q.Stop()
	_, err = q.Enqueue("x")
	assert.Error(t, err)
}
