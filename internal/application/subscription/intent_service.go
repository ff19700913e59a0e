package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/infrastructure/billing"
	"go.uber.org/zap"
)

// VerificationSurchargeDescription labels the nominal surcharge added to
// zero-total orders so the payment provider can still verify a card
const VerificationSurchargeDescription = "Payment method verification"

// IntentService creates checkout payment intents for active orders
type IntentService struct {
	orders                order.Repository
	stripeCustomers       channel.StripeCustomerRepository
	creds                 *CredentialResolver
	gateway               billing.Gateway
	verificationSurcharge int64
	logger                *zap.Logger
}

// IntentServiceConfig contains configuration for IntentService
type IntentServiceConfig struct {
	Orders                order.Repository
	StripeCustomers       channel.StripeCustomerRepository
	Creds                 *CredentialResolver
	Gateway               billing.Gateway
	VerificationSurcharge int64
	Logger                *zap.Logger
}

// NewIntentService creates a new IntentService
func NewIntentService(cfg IntentServiceConfig) *IntentService {
	return &IntentService{
		orders:                cfg.Orders,
		stripeCustomers:       cfg.StripeCustomers,
		creds:                 cfg.Creds,
		gateway:               cfg.Gateway,
		verificationSurcharge: cfg.VerificationSurcharge,
		logger:                cfg.Logger,
	}
}

// PaymentIntentResult is returned to the storefront to confirm the intent
type PaymentIntentResult struct {
	OrderCode      string `json:"order_code"`
	ClientSecret   string `json:"client_secret"`
	PublishableKey string `json:"publishable_key,omitempty"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// CreatePaymentIntent validates the session's active order and creates a
// Stripe payment intent for its total. Orders totalling zero get a nominal
// verification surcharge first: Stripe rejects zero-amount intents, and the
// platform still needs a reusable payment method for the recurring charges.
func (s *IntentService) CreatePaymentIntent(ctx context.Context, reqCtx channel.RequestContext) (*PaymentIntentResult, error) {
	if err := reqCtx.Validate(); err != nil {
		return nil, err
	}
	if reqCtx.CustomerID == nil {
		return nil, shared.ErrNoCustomer
	}

	o, err := s.orders.FindActiveByCustomer(ctx, reqCtx.ChannelToken, *reqCtx.CustomerID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrNoActiveOrder
		}
		return nil, fmt.Errorf("find active order: %w", err)
	}

	if len(o.Lines) == 0 {
		return nil, shared.ErrEmptyOrder
	}
	if o.CustomerID == nil || o.Customer == nil {
		return nil, shared.ErrNoCustomer
	}
	if o.ShippingMethodID == nil {
		return nil, shared.ErrNoShippingMethod
	}

	if o.TotalWithTax() == 0 {
		if err := s.addVerificationSurcharge(ctx, o); err != nil {
			return nil, err
		}
	}

	creds, err := s.creds.Resolve(ctx, reqCtx.ChannelToken)
	if err != nil {
		return nil, err
	}

	stripeCustomerID, err := s.ensureStripeCustomer(ctx, creds, o)
	if err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, billing.CreatePaymentIntentInput{
		APIKey:       creds.APIKey,
		Amount:       o.TotalWithTax(),
		Currency:     strings.ToLower(o.CurrencyCode),
		CustomerID:   stripeCustomerID,
		OrderCode:    o.Code,
		ChannelToken: o.ChannelToken,
	})
	if err != nil {
		return nil, fmt.Errorf("create payment intent for order %s: %w", o.Code, err)
	}

	s.logger.Info("Created checkout payment intent",
		zap.String("order_code", o.Code),
		zap.String("payment_intent_id", intent.IntentID),
		zap.Int64("amount", intent.Amount))

	return &PaymentIntentResult{
		OrderCode:      o.Code,
		ClientSecret:   intent.ClientSecret,
		PublishableKey: creds.PublishableKey,
		Amount:         intent.Amount,
		Currency:       o.CurrencyCode,
	}, nil
}

// addVerificationSurcharge adds exactly one verification surcharge to a
// zero-total order and persists it. A repeated call is a no-op so retried
// checkouts never stack surcharges.
func (s *IntentService) addVerificationSurcharge(ctx context.Context, o *order.Order) error {
	for i := range o.Surcharges {
		if o.Surcharges[i].Description == VerificationSurchargeDescription {
			return nil
		}
	}

	if _, err := o.AddSurcharge(VerificationSurchargeDescription, s.verificationSurcharge); err != nil {
		return err
	}
	if err := s.orders.Save(ctx, o); err != nil {
		return fmt.Errorf("persist verification surcharge for order %s: %w", o.Code, err)
	}

	s.logger.Info("Added verification surcharge to zero-total order",
		zap.String("order_code", o.Code),
		zap.Int64("amount", s.verificationSurcharge))

	return nil
}

// ensureStripeCustomer returns the Stripe customer ID mapped to the order's
// customer for its channel, creating the Stripe customer and the mapping on
// first use.
func (s *IntentService) ensureStripeCustomer(ctx context.Context, creds StripeCredentials, o *order.Order) (string, error) {
	existing, err := s.stripeCustomers.FindByCustomer(ctx, o.ChannelToken, *o.CustomerID)
	if err == nil {
		return existing.StripeCustomerID, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return "", fmt.Errorf("find stripe customer mapping: %w", err)
	}

	name := strings.TrimSpace(o.Customer.FirstName + " " + o.Customer.LastName)
	created, err := s.gateway.CreateCustomer(ctx, billing.CreateCustomerInput{
		APIKey:       creds.APIKey,
		Email:        o.Customer.Email,
		Name:         name,
		ChannelToken: o.ChannelToken,
		Metadata:     map[string]string{"customer_id": o.CustomerID.String()},
	})
	if err != nil {
		return "", fmt.Errorf("create stripe customer for order %s: %w", o.Code, err)
	}

	mapping := &channel.StripeCustomer{
		BaseEntity:       shared.NewBaseEntity(),
		ChannelToken:     o.ChannelToken,
		CustomerID:       *o.CustomerID,
		StripeCustomerID: created.CustomerID,
	}
	if err := s.stripeCustomers.Save(ctx, mapping); err != nil {
		return "", fmt.Errorf("persist stripe customer mapping: %w", err)
	}

	s.logger.Info("Created Stripe customer",
		zap.String("channel_token", o.ChannelToken),
		zap.String("stripe_customer_id", created.CustomerID))

	return created.CustomerID, nil
}
