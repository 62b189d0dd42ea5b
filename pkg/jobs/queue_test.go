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
)

func TestQueueRetriesUntilSuccess(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("render", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: time.Millisecond})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "b-1", Type: TypeBulletinRender}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueueGivesUpAfterRetries(t *testing.T) {
	var mu sync.Mutex
	var gaveUp []Job
	done := make(chan struct{})
	q := NewQueue("render", func(ctx context.Context, job Job) error {
		return errors.New("permanent")
	}, QueueConfig{MaxRetries: 1, RetryDelay: time.Millisecond, OnGiveUp: func(job Job, err error) {
		mu.Lock()
		gaveUp = append(gaveUp, job)
		mu.Unlock()
		close(done)
	}})

	q.Start(context.Background())
	defer q.Stop()
	require.NoError(t, q.Enqueue(Job{ID: "b-2", Type: TypeBulletinRender}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("give-up hook never ran")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Len(t, gaveUp, 1)
	assert.Equal(t, 2, gaveUp[0].Attempt)
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{ID: "x"}))
}
