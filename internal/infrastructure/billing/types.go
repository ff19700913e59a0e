package billing

import (
	"context"
	"time"
)

// CreateCustomerInput holds parameters for creating a Stripe customer
type CreateCustomerInput struct {
	APIKey       string
	Email        string
	Name         string
	ChannelToken string
	Metadata     map[string]string
}

// CustomerOutput describes a Stripe customer
type CustomerOutput struct {
	CustomerID string
	Email      string
	Name       string
	CreatedAt  time.Time
}

// CreatePaymentIntentInput holds parameters for creating a payment intent
type CreatePaymentIntentInput struct {
	APIKey       string
	Amount       int64
	Currency     string
	CustomerID   string
	OrderCode    string
	ChannelToken string
	Metadata     map[string]string
}

// PaymentIntentOutput describes a created payment intent
type PaymentIntentOutput struct {
	IntentID     string
	ClientSecret string
	Amount       int64
	Status       string
}

// EnsurePriceInput holds parameters for resolving or creating a recurring price.
// LookupKey makes the operation idempotent: repeated calls with the same key
// return the existing price instead of creating a duplicate.
type EnsurePriceInput struct {
	APIKey        string
	LookupKey     string
	ProductName   string
	Amount        int64
	Currency      string
	Interval      string
	IntervalCount int64
}

// CreateSubscriptionInput holds parameters for creating a subscription
type CreateSubscriptionInput struct {
	APIKey           string
	CustomerID       string
	PriceID          string
	Quantity         int64
	PaymentMethodID  string
	BillingStartDate time.Time
	Metadata         map[string]string
}

// SubscriptionOutput describes a Stripe subscription
type SubscriptionOutput struct {
	SubscriptionID     string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
}

// Gateway abstracts the Stripe API calls the orchestration layer needs.
// Every call carries the channel's own API key; credentials are resolved
// per channel, never from process-wide state.
type Gateway interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*CustomerOutput, error)
	CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*PaymentIntentOutput, error)
	EnsurePrice(ctx context.Context, input EnsurePriceInput) (string, error)
	CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*SubscriptionOutput, error)
	CancelSubscriptionAtPeriodEnd(ctx context.Context, apiKey, subscriptionID string) (*SubscriptionOutput, error)
}
