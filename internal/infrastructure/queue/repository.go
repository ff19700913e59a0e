package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormRepository implements Repository using GORM
type GormRepository struct {
	db *gorm.DB
}

// NewGormRepository creates a new GORM-based job repository
func NewGormRepository(db *gorm.DB) *GormRepository {
	return &GormRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormRepository) WithTx(tx *gorm.DB) *GormRepository {
	return &GormRepository{db: tx}
}

// Enqueue persists one or more jobs
func (r *GormRepository) Enqueue(ctx context.Context, jobs ...*Job) error {
	if len(jobs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(jobs).Error
}

// ClaimDue atomically claims due pending and retryable jobs and marks them running
func (r *GormRepository) ClaimDue(ctx context.Context, queues []string, now time.Time, limit int) ([]*Job, error) {
	if len(queues) == 0 {
		return nil, nil
	}

	var jobs []*Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock and fetch due jobs using FOR UPDATE SKIP LOCKED so
		// concurrent workers never claim the same job twice
		if err := tx.
			Clauses(clause.Locking{
				Strength: "UPDATE",
				Options:  "SKIP LOCKED",
			}).
			Where("queue IN ? AND status IN ? AND run_at <= ?", queues, []JobStatus{
				JobStatusPending,
				JobStatusFailed,
			}, now).
			Order("run_at ASC").
			Limit(limit).
			Find(&jobs).Error; err != nil {
			return err
		}

		if len(jobs) == 0 {
			return nil
		}

		ids := make([]uuid.UUID, len(jobs))
		for i, j := range jobs {
			ids[i] = j.ID
		}

		claimTime := time.Now()
		if err := tx.Model(&Job{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":     JobStatusRunning,
				"updated_at": claimTime,
			}).Error; err != nil {
			return err
		}

		for _, j := range jobs {
			j.Status = JobStatusRunning
			j.UpdatedAt = claimTime
		}

		return nil
	})

	return jobs, err
}

// Update updates an existing job
func (r *GormRepository) Update(ctx context.Context, job *Job) error {
	job.UpdatedAt = time.Now()
	return r.db.WithContext(ctx).Save(job).Error
}

// FindByID retrieves a single job by ID
func (r *GormRepository) FindByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	var job Job
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindDead retrieves dead jobs with pagination
func (r *GormRepository) FindDead(ctx context.Context, page, pageSize int) ([]*Job, int64, error) {
	var jobs []*Job
	var total int64

	if err := r.db.WithContext(ctx).
		Model(&Job{}).
		Where("status = ?", JobStatusDead).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := r.db.WithContext(ctx).
		Where("status = ?", JobStatusDead).
		Order("updated_at DESC").
		Offset(offset).
		Limit(pageSize).
		Find(&jobs).Error; err != nil {
		return nil, 0, err
	}

	return jobs, total, nil
}

// DeleteOlderThan deletes succeeded jobs processed before the given time
func (r *GormRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND processed_at < ?", JobStatusSucceeded, before).
		Delete(&Job{})
	return result.RowsAffected, result.Error
}

// CountByStatus returns the number of jobs per status
func (r *GormRepository) CountByStatus(ctx context.Context) (map[JobStatus]int64, error) {
	type statusCount struct {
		Status JobStatus
		Count  int64
	}

	var results []statusCount
	err := r.db.WithContext(ctx).
		Model(&Job{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[JobStatus]int64)
	for _, sc := range results {
		counts[sc.Status] = sc.Count
	}
	return counts, nil
}

// Ensure GormRepository implements Repository
var _ Repository = (*GormRepository)(nil)
