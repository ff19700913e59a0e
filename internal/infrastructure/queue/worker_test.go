package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeRepository is an in-memory Repository for worker tests
type fakeRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*Job
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{jobs: make(map[uuid.UUID]*Job)}
}

func (r *fakeRepository) Enqueue(ctx context.Context, jobs ...*Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range jobs {
		copied := *j
		r.jobs[j.ID] = &copied
	}
	return nil
}

func (r *fakeRepository) ClaimDue(ctx context.Context, queues []string, now time.Time, limit int) ([]*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	queueSet := make(map[string]bool, len(queues))
	for _, q := range queues {
		queueSet[q] = true
	}

	var claimed []*Job
	for _, j := range r.jobs {
		if len(claimed) >= limit {
			break
		}
		if !queueSet[j.Queue] {
			continue
		}
		if j.Status != JobStatusPending && j.Status != JobStatusFailed {
			continue
		}
		if j.RunAt.After(now) {
			continue
		}
		j.Status = JobStatusRunning
		copied := *j
		claimed = append(claimed, &copied)
	}
	return claimed, nil
}

func (r *fakeRepository) Update(ctx context.Context, job *Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *job
	r.jobs[job.ID] = &copied
	return nil
}

func (r *fakeRepository) FindByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return nil, errors.New("job not found")
	}
	copied := *j
	return &copied, nil
}

func (r *fakeRepository) FindDead(ctx context.Context, page, pageSize int) ([]*Job, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var dead []*Job
	for _, j := range r.jobs {
		if j.Status == JobStatusDead {
			copied := *j
			dead = append(dead, &copied)
		}
	}
	return dead, int64(len(dead)), nil
}

func (r *fakeRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (r *fakeRepository) CountByStatus(ctx context.Context) (map[JobStatus]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[JobStatus]int64)
	for _, j := range r.jobs {
		counts[j.Status]++
	}
	return counts, nil
}

func TestJob_MarkFailed_RetriesWithBackoff(t *testing.T) {
	job := NewJob("test-queue", []byte(`{}`))
	job.MaxRetries = 3

	job.MarkFailed("boom")

	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.Equal(t, "boom", job.LastError)
	assert.True(t, job.RunAt.After(time.Now()))
	assert.True(t, job.CanRetry())
}

func TestJob_MarkFailed_ExhaustsRetries(t *testing.T) {
	job := NewJob("test-queue", []byte(`{}`))
	job.MaxRetries = 2

	job.MarkFailed("first")
	job.MarkFailed("second")
	assert.Equal(t, JobStatusFailed, job.Status)

	job.MarkFailed("third")
	assert.Equal(t, JobStatusDead, job.Status)
	assert.Equal(t, 3, job.RetryCount)
	assert.False(t, job.CanRetry())
}

func TestJob_ZeroRetries_DiesOnFirstFailure(t *testing.T) {
	job := NewJob("test-queue", []byte(`{}`))
	job.MaxRetries = 0

	job.MarkFailed("boom")

	assert.Equal(t, JobStatusDead, job.Status)
	assert.False(t, job.CanRetry())
}

func TestJob_MarkSucceeded(t *testing.T) {
	job := NewJob("test-queue", []byte(`{}`))

	require.NoError(t, job.MarkRunning())
	job.MarkSucceeded()

	assert.Equal(t, JobStatusSucceeded, job.Status)
	require.NotNil(t, job.ProcessedAt)
}

func TestWorker_RunJob_Success(t *testing.T) {
	repo := newFakeRepository()
	worker := NewWorker(repo, DefaultWorkerConfig(), zap.NewNop())

	var handled []byte
	worker.Register("test-queue", func(ctx context.Context, job *Job) error {
		handled = job.Payload
		return nil
	})

	job := NewJob("test-queue", []byte(`{"order":"ORD-1"}`))
	require.NoError(t, repo.Enqueue(context.Background(), job))

	worker.processBatch(context.Background())

	assert.Equal(t, []byte(`{"order":"ORD-1"}`), handled)
	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusSucceeded, stored.Status)
}

func TestWorker_RunJob_FailureConsumesRetry(t *testing.T) {
	repo := newFakeRepository()
	worker := NewWorker(repo, DefaultWorkerConfig(), zap.NewNop())

	worker.Register("test-queue", func(ctx context.Context, job *Job) error {
		return errors.New("stripe unavailable")
	})

	job := NewJob("test-queue", []byte(`{}`))
	job.MaxRetries = 3
	require.NoError(t, repo.Enqueue(context.Background(), job))

	worker.processBatch(context.Background())

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.RetryCount)
	assert.Equal(t, "stripe unavailable", stored.LastError)
}

func TestWorker_ZeroRetryJob_RunsExactlyOnce(t *testing.T) {
	repo := newFakeRepository()
	worker := NewWorker(repo, DefaultWorkerConfig(), zap.NewNop())

	attempts := 0
	worker.Register("creation-queue", func(ctx context.Context, job *Job) error {
		attempts++
		return errors.New("permanent failure")
	})

	job := NewJob("creation-queue", []byte(`{}`))
	job.MaxRetries = 0
	require.NoError(t, repo.Enqueue(context.Background(), job))

	// First pass runs the job and moves it to dead; later passes must
	// never pick it up again
	worker.processBatch(context.Background())
	worker.processBatch(context.Background())
	worker.processBatch(context.Background())

	assert.Equal(t, 1, attempts)
	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusDead, stored.Status)
}

func TestWorker_HandlerPanicIsRecovered(t *testing.T) {
	repo := newFakeRepository()
	worker := NewWorker(repo, DefaultWorkerConfig(), zap.NewNop())

	worker.Register("test-queue", func(ctx context.Context, job *Job) error {
		panic("nil pointer somewhere")
	})

	job := NewJob("test-queue", []byte(`{}`))
	job.MaxRetries = 1
	require.NoError(t, repo.Enqueue(context.Background(), job))

	worker.processBatch(context.Background())

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, stored.Status)
	assert.Contains(t, stored.LastError, "panicked")
}

func TestWorker_OnlyClaimsRegisteredQueues(t *testing.T) {
	repo := newFakeRepository()
	worker := NewWorker(repo, DefaultWorkerConfig(), zap.NewNop())

	worker.Register("wanted", func(ctx context.Context, job *Job) error {
		return nil
	})

	other := NewJob("unwanted", []byte(`{}`))
	require.NoError(t, repo.Enqueue(context.Background(), other))

	worker.processBatch(context.Background())

	stored, err := repo.FindByID(context.Background(), other.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}

func TestWorker_StartRequiresHandlers(t *testing.T) {
	worker := NewWorker(newFakeRepository(), DefaultWorkerConfig(), zap.NewNop())
	err := worker.Start(context.Background())
	assert.Error(t, err)
}

func TestEnqueuer_AppliesOptions(t *testing.T) {
	repo := newFakeRepository()
	enqueuer := NewEnqueuer(repo, zap.NewNop())

	runAt := time.Now().Add(time.Hour)
	job, err := enqueuer.Enqueue(context.Background(), "test-queue",
		map[string]string{"orderLineId": "line-1"},
		WithMaxRetries(0),
		WithRunAt(runAt),
	)
	require.NoError(t, err)

	assert.Equal(t, 0, job.MaxRetries)
	assert.Equal(t, runAt, job.RunAt)
	assert.JSONEq(t, `{"orderLineId":"line-1"}`, string(job.Payload))

	stored, err := repo.FindByID(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}
