package queue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupJobDB(t *testing.T) *GormRepository {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&Job{}))
	t.Cleanup(func() {
		db.Exec("DELETE FROM background_jobs")
	})
	return NewGormRepository(db)
}

func TestGormRepository_EnqueueAndFind(t *testing.T) {
	repo := setupJobDB(t)
	ctx := context.Background()

	job := NewJob("subscriptions.create", []byte(`{"kind":"create"}`))
	job.MaxRetries = 0
	require.NoError(t, repo.Enqueue(ctx, job))

	found, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "subscriptions.create", found.Queue)
	assert.Equal(t, JobStatusPending, found.Status)
	assert.Equal(t, 0, found.MaxRetries)
	assert.JSONEq(t, `{"kind":"create"}`, string(found.Payload))
}

func TestGormRepository_Update_PersistsFailureState(t *testing.T) {
	repo := setupJobDB(t)
	ctx := context.Background()

	job := NewJob("subscriptions.create", []byte(`{}`))
	job.MaxRetries = 0
	require.NoError(t, repo.Enqueue(ctx, job))

	job.MarkFailed("stripe unreachable")
	require.NoError(t, repo.Update(ctx, job))

	found, err := repo.FindByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusDead, found.Status)
	assert.Equal(t, "stripe unreachable", found.LastError)
	assert.Equal(t, 1, found.RetryCount)
}

func TestGormRepository_FindDead(t *testing.T) {
	repo := setupJobDB(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		job := NewJob("subscriptions.cancel", []byte(`{}`))
		job.MaxRetries = 0
		require.NoError(t, repo.Enqueue(ctx, job))
		job.MarkFailed("boom")
		require.NoError(t, repo.Update(ctx, job))
	}
	alive := NewJob("subscriptions.cancel", []byte(`{}`))
	require.NoError(t, repo.Enqueue(ctx, alive))

	dead, total, err := repo.FindDead(ctx, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Len(t, dead, 2)
	for _, j := range dead {
		assert.Equal(t, JobStatusDead, j.Status)
	}
}

func TestGormRepository_DeleteOlderThan(t *testing.T) {
	repo := setupJobDB(t)
	ctx := context.Background()

	old := NewJob("subscriptions.create", []byte(`{}`))
	require.NoError(t, repo.Enqueue(ctx, old))
	old.MarkSucceeded()
	processed := time.Now().Add(-48 * time.Hour)
	old.ProcessedAt = &processed
	require.NoError(t, repo.Update(ctx, old))

	recent := NewJob("subscriptions.create", []byte(`{}`))
	require.NoError(t, repo.Enqueue(ctx, recent))
	recent.MarkSucceeded()
	require.NoError(t, repo.Update(ctx, recent))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.FindByID(ctx, old.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.FindByID(ctx, recent.ID)
	assert.NoError(t, err)
}

func TestGormRepository_CountByStatus(t *testing.T) {
	repo := setupJobDB(t)
	ctx := context.Background()

	pending := NewJob("subscriptions.create", []byte(`{}`))
	require.NoError(t, repo.Enqueue(ctx, pending))

	done := NewJob("subscriptions.create", []byte(`{}`))
	require.NoError(t, repo.Enqueue(ctx, done))
	done.MarkSucceeded()
	require.NoError(t, repo.Update(ctx, done))

	counts, err := repo.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[JobStatusPending])
	assert.Equal(t, int64(1), counts[JobStatusSucceeded])
}
