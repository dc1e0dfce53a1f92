// Package redisqueue implements the job queue on a Redis list. Dequeued
// jobs move to a per-consumer processing list and are removed only after
// the handler succeeds, so a crashed worker's jobs can be recovered.
package redisqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/queue"
	redis "github.com/redis/go-redis/v9"
)

const (
	jobsKey       = "flowd:jobs"
	processingKey = "flowd:processing:"

	popTimeout = 1 * time.Second
)

type Queue struct {
	client     redis.UniversalClient
	consumerID string
	logger     *slog.Logger
	stopCh     chan struct{}
	stopOnce   sync.Once
	wg         sync.WaitGroup
}

// NewQueue connects to Redis at the given URL. The consumer id names this
// worker's processing list; reusing an id after a crash recovers the jobs
// that were in flight.
func NewQueue(ctx context.Context, redisURL, consumerID string, logger *slog.Logger) (*Queue, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	q := &Queue{
		client:     client,
		consumerID: consumerID,
		logger:     logger.With("module", "redis_queue", "consumer_id", consumerID),
		stopCh:     make(chan struct{}),
	}

	if err := q.recover(ctx); err != nil {
		return nil, err
	}

	return q, nil
}

// NewQueueWithClient wraps an existing client. Used by tests.
func NewQueueWithClient(client redis.UniversalClient, consumerID string, logger *slog.Logger) *Queue {
	return &Queue{
		client:     client,
		consumerID: consumerID,
		logger:     logger.With("module", "redis_queue", "consumer_id", consumerID),
		stopCh:     make(chan struct{}),
	}
}

func (q *Queue) processingList() string {
	return processingKey + q.consumerID
}

// recover pushes jobs left on this consumer's processing list by a previous
// run back onto the main queue.
func (q *Queue) recover(ctx context.Context) error {
	for {
		_, err := q.client.LMove(ctx, q.processingList(), jobsKey, "RIGHT", "LEFT").Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return nil
			}

			return fmt.Errorf("failed to recover in-flight jobs: %w", err)
		}
	}
}

func (q *Queue) Enqueue(ctx context.Context, job *models.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	if err := q.client.LPush(ctx, jobsKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue job %s: %w", job.ID, err)
	}

	return nil
}

// Consume blocks until the context is cancelled or Close is called.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	q.wg.Add(1)
	defer q.wg.Done()

	q.logger.InfoContext(ctx, "Starting queue consumer", "queue", jobsKey)

	for {
		select {
		case <-q.stopCh:
			q.logger.InfoContext(ctx, "Queue consumer stopped")

			return nil
		case <-ctx.Done():
			q.logger.InfoContext(ctx, "Context cancelled, stopping queue consumer")

			return nil
		default:
			err := q.processMessage(ctx, handler)
			if err != nil {
				q.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (q *Queue) processMessage(ctx context.Context, handler queue.Handler) error {
	payload, err := q.client.BLMove(ctx, jobsKey, q.processingList(), "RIGHT", "LEFT", popTimeout).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) {
			return nil
		}

		return fmt.Errorf("failed to pop job from queue: %w", err)
	}

	var job models.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		q.logger.ErrorContext(ctx, "Dropping undecodable job payload", "error", err)
		q.ack(ctx, payload)

		return nil
	}

	if err := handler(ctx, &job); err != nil {
		q.logger.WarnContext(ctx, "Job handler failed, requeueing", "job_id", job.ID, "error", err)
		q.nack(ctx, payload)

		return nil
	}

	q.ack(ctx, payload)

	return nil
}

// ack removes the payload from the processing list.
func (q *Queue) ack(ctx context.Context, payload string) {
	if err := q.client.LRem(ctx, q.processingList(), 1, payload).Err(); err != nil {
		q.logger.ErrorContext(ctx, "Failed to ack job", "error", err)
	}
}

// nack moves the payload from the processing list back onto the queue.
func (q *Queue) nack(ctx context.Context, payload string) {
	pipe := q.client.TxPipeline()
	pipe.LRem(ctx, q.processingList(), 1, payload)
	pipe.LPush(ctx, jobsKey, payload)

	if _, err := pipe.Exec(ctx); err != nil {
		q.logger.ErrorContext(ctx, "Failed to requeue job", "error", err)
	}
}

func (q *Queue) Close() error {
	q.stopOnce.Do(func() { close(q.stopCh) })
	q.wg.Wait()

	return q.client.Close()
}
