package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// EnqueueOption customizes a job before it is persisted
type EnqueueOption func(*Job)

// WithMaxRetries sets the job's retry budget. A budget of 0 means the
// job is attempted exactly once.
func WithMaxRetries(n int) EnqueueOption {
	return func(j *Job) {
		j.MaxRetries = n
	}
}

// WithRunAt delays the job's first execution until the given time
func WithRunAt(t time.Time) EnqueueOption {
	return func(j *Job) {
		j.RunAt = t
	}
}

// Enqueuer persists jobs for background execution
type Enqueuer struct {
	repo   Repository
	logger *zap.Logger
}

// NewEnqueuer creates a new enqueuer
func NewEnqueuer(repo Repository, logger *zap.Logger) *Enqueuer {
	return &Enqueuer{repo: repo, logger: logger}
}

// Enqueue serializes the payload and persists a job on the named queue
func (e *Enqueuer) Enqueue(ctx context.Context, queueName string, payload interface{}, opts ...EnqueueOption) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize job payload: %w", err)
	}

	job := NewJob(queueName, data)
	for _, opt := range opts {
		opt(job)
	}

	if err := e.repo.Enqueue(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	e.logger.Debug("job enqueued",
		zap.String("job_id", job.ID.String()),
		zap.String("queue", job.Queue),
		zap.Int("max_retries", job.MaxRetries),
		zap.Time("run_at", job.RunAt),
	)

	return job, nil
}
