package channel

import (
	"context"

	"github.com/google/uuid"
)

// PaymentMethodRepository is the persistence port for payment methods
type PaymentMethodRepository interface {
	// FindEnabledByChannel returns all enabled payment methods for a channel
	FindEnabledByChannel(ctx context.Context, channelToken string) ([]PaymentMethod, error)

	// Save persists a payment method
	Save(ctx context.Context, m *PaymentMethod) error
}

// StripeCustomerRepository persists the platform-to-Stripe customer mapping
type StripeCustomerRepository interface {
	// FindByCustomer finds the mapping for a customer within a channel
	FindByCustomer(ctx context.Context, channelToken string, customerID uuid.UUID) (*StripeCustomer, error)

	// Save persists a mapping
	Save(ctx context.Context, c *StripeCustomer) error
}
