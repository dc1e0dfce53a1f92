// Package watermillqueue implements the job queue over a watermill
// publisher and subscriber pair, so jobs can ride the in-memory channel in
// development and Kafka in production.
package watermillqueue

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/flowd-io/flowd/pkg/models"
	"github.com/flowd-io/flowd/pkg/queue"
)

// Topic carries every job; delivery fan-out is handled by the consumer
// group of the underlying channel.
const Topic = "flowd.jobs"

const jobIDMetadataKey = "job_id"

type Queue struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
}

func NewQueue(publisher message.Publisher, subscriber message.Subscriber, logger *slog.Logger) *Queue {
	return &Queue{
		publisher:  publisher,
		subscriber: subscriber,
		logger:     logger,
	}
}

func (q *Queue) Enqueue(_ context.Context, job *models.Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return err
	}

	msg := message.NewMessage("msg-"+watermill.NewULID(), payload)
	msg.Metadata.Set(jobIDMetadataKey, job.ID)

	return q.publisher.Publish(Topic, msg)
}

// Consume feeds dequeued jobs to the handler. A handler error nacks the
// message so the channel redelivers it.
func (q *Queue) Consume(ctx context.Context, handler queue.Handler) error {
	messages, err := q.subscriber.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	for msg := range messages {
		var job models.Job

		if err := json.Unmarshal(msg.Payload, &job); err != nil {
			q.logger.Error("Dropping undecodable job message",
				"message_id", msg.UUID, "error", err)
			msg.Ack()

			continue
		}

		if err := handler(ctx, &job); err != nil {
			q.logger.Warn("Job handler failed, requeueing",
				"job_id", job.ID, "error", err)
			msg.Nack()

			continue
		}

		msg.Ack()
	}

	return nil
}

func (q *Queue) Close() error {
	if err := q.publisher.Close(); err != nil {
		return err
	}

	return q.subscriber.Close()
}
