package persistence

import (
	"context"
	"errors"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormStripeCustomerRepository implements channel.StripeCustomerRepository using GORM
type GormStripeCustomerRepository struct {
	db *gorm.DB
}

// NewGormStripeCustomerRepository creates a new GormStripeCustomerRepository
func NewGormStripeCustomerRepository(db *gorm.DB) *GormStripeCustomerRepository {
	return &GormStripeCustomerRepository{db: db}
}

// FindByCustomer finds the mapping for a customer within a channel
func (r *GormStripeCustomerRepository) FindByCustomer(ctx context.Context, channelToken string, customerID uuid.UUID) (*channel.StripeCustomer, error) {
	var mapping channel.StripeCustomer
	if err := r.db.WithContext(ctx).
		Where("channel_token = ? AND customer_id = ?", channelToken, customerID).
		First(&mapping).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &mapping, nil
}

// Save persists a mapping
func (r *GormStripeCustomerRepository) Save(ctx context.Context, c *channel.StripeCustomer) error {
	return r.db.WithContext(ctx).Save(c).Error
}

// Ensure GormStripeCustomerRepository implements channel.StripeCustomerRepository
var _ channel.StripeCustomerRepository = (*GormStripeCustomerRepository)(nil)
