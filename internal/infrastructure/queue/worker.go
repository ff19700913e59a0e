package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Handler processes a claimed job. A nil return marks the job succeeded;
// an error consumes one retry.
type Handler func(ctx context.Context, job *Job) error

// WorkerConfig holds configuration for the job worker
type WorkerConfig struct {
	BatchSize        int
	PollInterval     time.Duration
	CleanupEnabled   bool
	CleanupRetention time.Duration
	CleanupInterval  time.Duration
}

// DefaultWorkerConfig returns default configuration
func DefaultWorkerConfig() WorkerConfig {
	return WorkerConfig{
		BatchSize:        50,
		PollInterval:     2 * time.Second,
		CleanupEnabled:   true,
		CleanupRetention: 7 * 24 * time.Hour, // 7 days
		CleanupInterval:  1 * time.Hour,
	}
}

// Worker polls the job store and dispatches claimed jobs to the handler
// registered for their queue
type Worker struct {
	repo     Repository
	config   WorkerConfig
	logger   *zap.Logger
	handlers map[string]Handler

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWorker creates a new job worker
func NewWorker(repo Repository, config WorkerConfig, logger *zap.Logger) *Worker {
	return &Worker{
		repo:     repo,
		config:   config,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Register binds a handler to a queue name. Must be called before Start.
func (w *Worker) Register(queueName string, handler Handler) {
	w.handlers[queueName] = handler
}

// Start starts the background polling
func (w *Worker) Start(ctx context.Context) error {
	if len(w.handlers) == 0 {
		return fmt.Errorf("no queue handlers registered")
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.wg.Add(1)
	go w.pollLoop(ctx)

	if w.config.CleanupEnabled {
		w.wg.Add(1)
		go w.cleanupLoop(ctx)
	}

	w.logger.Info("job worker started",
		zap.Int("queues", len(w.handlers)),
		zap.Int("batch_size", w.config.BatchSize),
		zap.Duration("poll_interval", w.config.PollInterval),
	)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.cancel()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("job worker stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *Worker) pollLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.processBatch(ctx)
		}
	}
}

// processBatch claims due jobs across all registered queues and runs them
func (w *Worker) processBatch(ctx context.Context) {
	queues := make([]string, 0, len(w.handlers))
	for name := range w.handlers {
		queues = append(queues, name)
	}

	jobs, err := w.repo.ClaimDue(ctx, queues, time.Now(), w.config.BatchSize)
	if err != nil {
		w.logger.Error("failed to claim due jobs", zap.Error(err))
		return
	}

	for _, job := range jobs {
		w.runJob(ctx, job)
	}
}

// runJob executes a single claimed job and persists the outcome
func (w *Worker) runJob(ctx context.Context, job *Job) {
	handler, ok := w.handlers[job.Queue]
	if !ok {
		// Claimed a job for a queue we no longer handle
		job.MarkFailed(fmt.Sprintf("no handler registered for queue %q", job.Queue))
		if err := w.repo.Update(ctx, job); err != nil {
			w.logger.Error("failed to update job", zap.Error(err))
		}
		return
	}

	err := w.invokeHandler(ctx, handler, job)
	if err != nil {
		w.logger.Error("job failed",
			zap.String("job_id", job.ID.String()),
			zap.String("queue", job.Queue),
			zap.Int("retry_count", job.RetryCount),
			zap.Error(err),
		)
		job.MarkFailed(err.Error())
		if job.IsDead() {
			w.logger.Warn("job exhausted retries",
				zap.String("job_id", job.ID.String()),
				zap.String("queue", job.Queue),
				zap.Int("retry_count", job.RetryCount),
				zap.String("last_error", job.LastError),
			)
		}
		if updateErr := w.repo.Update(ctx, job); updateErr != nil {
			w.logger.Error("failed to update job", zap.Error(updateErr))
		}
		return
	}

	job.MarkSucceeded()
	if err := w.repo.Update(ctx, job); err != nil {
		w.logger.Error("failed to mark job as succeeded",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	} else {
		w.logger.Debug("job succeeded",
			zap.String("job_id", job.ID.String()),
			zap.String("queue", job.Queue),
		)
	}
}

// invokeHandler runs the handler, converting panics into errors so one
// bad job cannot take down the worker
func (w *Worker) invokeHandler(ctx context.Context, handler Handler, job *Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job handler panicked: %v", r)
		}
	}()
	return handler(ctx, job)
}

func (w *Worker) cleanupLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.cleanup(ctx)
		}
	}
}

func (w *Worker) cleanup(ctx context.Context) {
	cutoff := time.Now().Add(-w.config.CleanupRetention)
	deleted, err := w.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		w.logger.Error("failed to cleanup old jobs", zap.Error(err))
		return
	}

	if deleted > 0 {
		w.logger.Info("cleaned up old jobs",
			zap.Int64("deleted", deleted),
			zap.Time("cutoff", cutoff),
		)
	}
}
