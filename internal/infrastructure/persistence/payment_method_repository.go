package persistence

import (
	"context"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"gorm.io/gorm"
)

// GormPaymentMethodRepository implements channel.PaymentMethodRepository using GORM
type GormPaymentMethodRepository struct {
	db *gorm.DB
}

// NewGormPaymentMethodRepository creates a new GormPaymentMethodRepository
func NewGormPaymentMethodRepository(db *gorm.DB) *GormPaymentMethodRepository {
	return &GormPaymentMethodRepository{db: db}
}

// FindEnabledByChannel returns all enabled payment methods for a channel
func (r *GormPaymentMethodRepository) FindEnabledByChannel(ctx context.Context, channelToken string) ([]channel.PaymentMethod, error) {
	var methods []channel.PaymentMethod
	if err := r.db.WithContext(ctx).
		Where("channel_token = ? AND enabled = ?", channelToken, true).
		Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

// Save persists a payment method
func (r *GormPaymentMethodRepository) Save(ctx context.Context, m *channel.PaymentMethod) error {
	return r.db.WithContext(ctx).Save(m).Error
}

// Ensure GormPaymentMethodRepository implements channel.PaymentMethodRepository
var _ channel.PaymentMethodRepository = (*GormPaymentMethodRepository)(nil)
