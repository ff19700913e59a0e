package persistence

import (
	"context"

	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormHistoryRepository implements order.HistoryRepository using GORM
type GormHistoryRepository struct {
	db *gorm.DB
}

// NewGormHistoryRepository creates a new GormHistoryRepository
func NewGormHistoryRepository(db *gorm.DB) *GormHistoryRepository {
	return &GormHistoryRepository{db: db}
}

// Append persists a history entry
func (r *GormHistoryRepository) Append(ctx context.Context, entry *order.HistoryEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// FindByOrder returns all entries for an order, oldest first
func (r *GormHistoryRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]order.HistoryEntry, error) {
	var entries []order.HistoryEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Ensure GormHistoryRepository implements order.HistoryRepository
var _ order.HistoryRepository = (*GormHistoryRepository)(nil)
