package persistence

import (
	"context"
	"errors"

	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormScheduleRepository implements subscription.Repository using GORM
type GormScheduleRepository struct {
	db *gorm.DB
}

// NewGormScheduleRepository creates a new GormScheduleRepository
func NewGormScheduleRepository(db *gorm.DB) *GormScheduleRepository {
	return &GormScheduleRepository{db: db}
}

// FindByID finds a schedule by ID
func (r *GormScheduleRepository) FindByID(ctx context.Context, id uuid.UUID) (*subscription.Schedule, error) {
	var s subscription.Schedule
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// FindByVariant finds the schedule attached to a product variant
func (r *GormScheduleRepository) FindByVariant(ctx context.Context, productVariantID uuid.UUID) (*subscription.Schedule, error) {
	var s subscription.Schedule
	if err := r.db.WithContext(ctx).
		Joins("JOIN subscription_schedule_variants sv ON sv.schedule_id = subscription_schedules.id").
		Where("sv.product_variant_id = ?", productVariantID).
		First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

// List returns all schedules
func (r *GormScheduleRepository) List(ctx context.Context) ([]subscription.Schedule, error) {
	var schedules []subscription.Schedule
	if err := r.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&schedules).Error; err != nil {
		return nil, err
	}
	return schedules, nil
}

// Save persists a schedule
func (r *GormScheduleRepository) Save(ctx context.Context, s *subscription.Schedule) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// AttachVariant attaches a schedule to a product variant
func (r *GormScheduleRepository) AttachVariant(ctx context.Context, scheduleID, productVariantID uuid.UUID) error {
	attachment := subscription.ScheduleVariant{
		ScheduleID:       scheduleID,
		ProductVariantID: productVariantID,
	}
	return r.db.WithContext(ctx).Save(&attachment).Error
}

// Delete removes a schedule and its variant attachments
func (r *GormScheduleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("schedule_id = ?", id).
			Delete(&subscription.ScheduleVariant{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&subscription.Schedule{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// Ensure GormScheduleRepository implements subscription.Repository
var _ subscription.Repository = (*GormScheduleRepository)(nil)
