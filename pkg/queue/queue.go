// Package queue defines the job queue contract between the dispatcher and
// the workers.
package queue

import (
	"context"

	"github.com/flowd-io/flowd/pkg/models"
)

// Handler processes one dequeued job. A non-nil error requeues the job for
// redelivery; handlers must therefore tolerate seeing the same job twice.
type Handler func(ctx context.Context, job *models.Job) error

// JobQueue delivers jobs from the dispatcher to workers with at-least-once
// semantics.
type JobQueue interface {
	Enqueue(ctx context.Context, job *models.Job) error

	// Consume blocks, feeding dequeued jobs to the handler until the
	// context is cancelled.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}
