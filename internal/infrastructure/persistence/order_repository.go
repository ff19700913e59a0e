package persistence

import (
	"context"
	"errors"

	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements order.Repository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: tx}
}

// FindByID finds an order by ID with lines hydrated
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Surcharges").
		Preload("Payments").
		First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByCode finds an order by its code with customer and lines hydrated
func (r *GormOrderRepository) FindByCode(ctx context.Context, code string) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines").
		Preload("Surcharges").
		Preload("Payments").
		Where("code = ?", code).
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// FindByOrderLineID finds the order that owns the given line, lines hydrated
func (r *GormOrderRepository) FindByOrderLineID(ctx context.Context, lineID uuid.UUID) (*order.Order, error) {
	var line order.OrderLine
	if err := r.db.WithContext(ctx).
		Select("order_id").
		First(&line, "id = ?", lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, line.OrderID)
}

// FindBySubscriptionID finds the order owning a line that recorded the given
// provider subscription identifier. The IDs live in a JSON text column, so
// the lookup matches on the quoted identifier.
func (r *GormOrderRepository) FindBySubscriptionID(ctx context.Context, subscriptionID string) (*order.Order, error) {
	var line order.OrderLine
	if err := r.db.WithContext(ctx).
		Select("order_id").
		Where("subscription_ids LIKE ?", `%"`+subscriptionID+`"%`).
		First(&line).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, line.OrderID)
}

// FindActiveByCustomer finds the customer's current open order for a channel
func (r *GormOrderRepository) FindActiveByCustomer(ctx context.Context, channelToken string, customerID uuid.UUID) (*order.Order, error) {
	var o order.Order
	if err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Lines").
		Preload("Surcharges").
		Where("channel_token = ? AND customer_id = ? AND state IN ?",
			channelToken, customerID,
			[]order.OrderState{order.StateAddingItems, order.StateArrangingPayment}).
		Order("updated_at DESC").
		First(&o).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// Save persists the order and its owned rows
func (r *GormOrderRepository) Save(ctx context.Context, o *order.Order) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(o).Error
}

// UpdateLineSubscriptionHash persists a line's correlation hash by line ID
func (r *GormOrderRepository) UpdateLineSubscriptionHash(ctx context.Context, lineID uuid.UUID, hash string) error {
	result := r.db.WithContext(ctx).
		Model(&order.OrderLine{}).
		Where("id = ?", lineID).
		Update("subscription_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// AddLineSubscriptionID appends a provider subscription identifier to a line.
// The append happens in a transaction with the row locked so concurrent
// writers cannot drop each other's IDs.
func (r *GormOrderRepository) AddLineSubscriptionID(ctx context.Context, lineID uuid.UUID, subscriptionID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var line order.OrderLine
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&line, "id = ?", lineID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return shared.ErrNotFound
			}
			return err
		}

		for _, existing := range line.SubscriptionIDs {
			if existing == subscriptionID {
				return nil
			}
		}
		line.SubscriptionIDs = append(line.SubscriptionIDs, subscriptionID)

		return tx.Model(&order.OrderLine{}).
			Where("id = ?", lineID).
			Update("subscription_ids", line.SubscriptionIDs).Error
	})
}

// Ensure GormOrderRepository implements order.Repository
var _ order.Repository = (*GormOrderRepository)(nil)
