package queue

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the lifecycle status of a queued job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSucceeded JobStatus = "SUCCEEDED"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusDead      JobStatus = "DEAD"
)

// Default retry configuration
const (
	DefaultMaxRetries  = 5
	DefaultBaseBackoff = time.Second
)

// Job represents a unit of work stored durably for background execution.
// Payload is an opaque JSON document interpreted by the handler registered
// for the job's queue.
type Job struct {
	ID          uuid.UUID
	Queue       string
	Payload     []byte
	Status      JobStatus
	RetryCount  int
	MaxRetries  int
	LastError   string
	RunAt       time.Time
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// TableName returns the table name for GORM
func (Job) TableName() string {
	return "background_jobs"
}

// NewJob creates a pending job for the given queue
func NewJob(queueName string, payload []byte) *Job {
	now := time.Now()
	return &Job{
		ID:         uuid.New(),
		Queue:      queueName,
		Payload:    payload,
		Status:     JobStatusPending,
		RetryCount: 0,
		MaxRetries: DefaultMaxRetries,
		RunAt:      now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// CanRetry returns true if the job can be retried
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// MarkRunning marks the job as claimed by a worker
func (j *Job) MarkRunning() error {
	if j.Status != JobStatusPending && j.Status != JobStatusFailed {
		return errors.New("can only mark pending or failed jobs as running")
	}
	j.Status = JobStatusRunning
	j.UpdatedAt = time.Now()
	return nil
}

// MarkSucceeded marks the job as successfully completed
func (j *Job) MarkSucceeded() {
	now := time.Now()
	j.Status = JobStatusSucceeded
	j.ProcessedAt = &now
	j.UpdatedAt = now
}

// MarkFailed records a failed attempt. Jobs that exhaust their retry
// budget move to dead status; a job with MaxRetries 0 dies on its first
// failure and is never attempted again.
func (j *Job) MarkFailed(errMsg string) {
	j.RetryCount++
	j.LastError = errMsg
	j.UpdatedAt = time.Now()

	if j.RetryCount > j.MaxRetries {
		j.Status = JobStatusDead
	} else {
		j.Status = JobStatusFailed
		// Exponential backoff: 1s, 2s, 4s, 8s, ...
		backoff := DefaultBaseBackoff * time.Duration(1<<uint(j.RetryCount-1))
		j.RunAt = time.Now().Add(backoff)
	}
}

// IsDead returns true if the job exhausted its retries
func (j *Job) IsDead() bool {
	return j.Status == JobStatusDead
}

// Repository defines the interface for durable job persistence
type Repository interface {
	// Enqueue persists one or more jobs
	Enqueue(ctx context.Context, jobs ...*Job) error
	// ClaimDue atomically claims due pending and retryable jobs for the
	// given queues and marks them running
	ClaimDue(ctx context.Context, queues []string, now time.Time, limit int) ([]*Job, error)
	// Update updates an existing job
	Update(ctx context.Context, job *Job) error
	// FindByID retrieves a single job by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Job, error)
	// FindDead retrieves dead jobs with pagination
	FindDead(ctx context.Context, page, pageSize int) ([]*Job, int64, error)
	// DeleteOlderThan deletes succeeded jobs processed before the given time
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
	// CountByStatus returns the number of jobs per status
	CountByStatus(ctx context.Context) (map[JobStatus]int64, error)
}
