package channel

import (
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
)

// StripeSubscriptionHandlerCode identifies payment methods handled by the
// Stripe subscription integration
const StripeSubscriptionHandlerCode = "stripe-subscription"

// Payment method argument keys
const (
	ArgAPIKey         = "apiKey"
	ArgWebhookSecret  = "webhookSecret"
	ArgPublishableKey = "publishableKey"
)

// Channel is a sales channel of the commerce platform
type Channel struct {
	shared.BaseEntity
	Token           string `gorm:"uniqueIndex;not null"`
	DefaultCurrency string `gorm:"not null"`
}

// TableName overrides the gorm table name
func (Channel) TableName() string {
	return "channels"
}

// PaymentMethod is a configured payment method within a channel. Args carry
// handler-specific configuration such as provider credentials.
type PaymentMethod struct {
	shared.BaseEntity
	ChannelToken string  `gorm:"not null;index"`
	Code         string  `gorm:"not null"`
	HandlerCode  string  `gorm:"not null;index"`
	Enabled      bool    `gorm:"not null;default:false"`
	Args         ArgsMap `gorm:"type:text"`
}

// TableName overrides the gorm table name
func (PaymentMethod) TableName() string {
	return "payment_methods"
}

// Arg returns the named handler argument, empty string when absent
func (m *PaymentMethod) Arg(key string) string {
	return m.Args[key]
}

// StripeCustomer maps a platform customer to a Stripe customer per channel
type StripeCustomer struct {
	shared.BaseEntity
	ChannelToken     string    `gorm:"not null;uniqueIndex:idx_stripe_customer_channel"`
	CustomerID       uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stripe_customer_channel"`
	StripeCustomerID string    `gorm:"not null;index"`
}

// TableName overrides the gorm table name
func (StripeCustomer) TableName() string {
	return "stripe_customers"
}
