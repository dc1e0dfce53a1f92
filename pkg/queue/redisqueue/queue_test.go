package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/flowd-io/flowd/pkg/models"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testQueue(t *testing.T) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	q := NewQueueWithClient(client, "test-consumer", slog.Default())
	t.Cleanup(func() { _ = q.Close() })

	return q, mr
}

func testJob(id string) *models.Job {
	return &models.Job{
		ID:          id,
		ExecutionID: "exec-1",
		WorkflowID:  "wf-1",
		NodeID:      "n1",
		NodeType:    "manual",
		Context:     map[string]any{"name": "Sam"},
	}
}

func TestQueue_EnqueueConsume(t *testing.T) {
	q, _ := testQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Enqueue(ctx, testJob("n1-exec-1")))

	received := make(chan *models.Job, 1)

	go func() {
		_ = q.Consume(ctx, func(_ context.Context, job *models.Job) error {
			received <- job

			return nil
		})
	}()

	select {
	case job := <-received:
		assert.Equal(t, "n1-exec-1", job.ID)
		assert.Equal(t, "exec-1", job.ExecutionID)
		assert.Equal(t, "Sam", job.Context["name"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for job delivery")
	}
}

func TestQueue_RedeliversOnHandlerError(t *testing.T) {
	q, _ := testQueue(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, q.Enqueue(ctx, testJob("n1-exec-1")))

	var attempts atomic.Int32

	done := make(chan struct{})

	go func() {
		_ = q.Consume(ctx, func(_ context.Context, _ *models.Job) error {
			if attempts.Add(1) == 1 {
				return errors.New("transient failure")
			}

			close(done)

			return nil
		})
	}()

	select {
	case <-done:
		assert.Equal(t, int32(2), attempts.Load())
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for redelivery")
	}
}

func TestQueue_RecoversInFlightJobs(t *testing.T) {
	q, mr := testQueue(t)

	payload, err := json.Marshal(testJob("n1-exec-1"))
	require.NoError(t, err)

	// Simulate a crash: a job stranded on the processing list.
	_, err = mr.Lpush(q.processingList(), string(payload))
	require.NoError(t, err)

	require.NoError(t, q.recover(context.Background()))

	assert.False(t, mr.Exists(q.processingList()))

	jobs, err := mr.List(jobsKey)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Contains(t, jobs[0], "n1-exec-1")
}
