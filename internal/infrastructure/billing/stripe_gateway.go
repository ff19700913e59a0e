package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"go.uber.org/zap"
)

// StripeGateway implements Gateway against the Stripe API. A separate
// client.API instance is held per API key so channels with different
// Stripe accounts never share credentials through global state.
type StripeGateway struct {
	logger *zap.Logger

	mu      sync.Mutex
	clients map[string]*client.API
}

// NewStripeGateway creates a new Stripe gateway
func NewStripeGateway(logger *zap.Logger) *StripeGateway {
	return &StripeGateway{
		logger:  logger,
		clients: make(map[string]*client.API),
	}
}

// api returns a cached client for the given API key
func (g *StripeGateway) api(apiKey string) *client.API {
	g.mu.Lock()
	defer g.mu.Unlock()

	if api, ok := g.clients[apiKey]; ok {
		return api
	}
	api := client.New(apiKey, nil)
	g.clients[apiKey] = api
	return api
}

// CreateCustomer creates a new customer in Stripe
func (g *StripeGateway) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*CustomerOutput, error) {
	g.logger.Debug("Creating Stripe customer",
		zap.String("channel_token", input.ChannelToken),
		zap.String("email", input.Email))

	params := &stripe.CustomerParams{
		Email: stripe.String(input.Email),
		Name:  stripe.String(input.Name),
	}
	params.Context = ctx

	params.Metadata = map[string]string{
		"channel_token": input.ChannelToken,
	}
	for k, v := range input.Metadata {
		params.Metadata[k] = v
	}

	cust, err := g.api(input.APIKey).Customers.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe customer",
			zap.String("channel_token", input.ChannelToken),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create customer: %w", err)
	}

	g.logger.Info("Created Stripe customer",
		zap.String("channel_token", input.ChannelToken),
		zap.String("customer_id", cust.ID))

	return &CustomerOutput{
		CustomerID: cust.ID,
		Email:      cust.Email,
		Name:       cust.Name,
		CreatedAt:  time.Unix(cust.Created, 0),
	}, nil
}

// CreatePaymentIntent creates a payment intent for the amount due at
// checkout. The payment method is saved for off-session reuse so the
// subscription created later can charge the same card.
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, input CreatePaymentIntentInput) (*PaymentIntentOutput, error) {
	g.logger.Debug("Creating Stripe payment intent",
		zap.String("order_code", input.OrderCode),
		zap.Int64("amount", input.Amount),
		zap.String("currency", input.Currency))

	params := &stripe.PaymentIntentParams{
		Amount:           stripe.Int64(input.Amount),
		Currency:         stripe.String(input.Currency),
		Customer:         stripe.String(input.CustomerID),
		SetupFutureUsage: stripe.String(string(stripe.PaymentIntentSetupFutureUsageOffSession)),
	}
	params.Context = ctx

	params.Metadata = map[string]string{
		"order_code":    input.OrderCode,
		"channel_token": input.ChannelToken,
		"amount":        fmt.Sprintf("%d", input.Amount),
	}
	for k, v := range input.Metadata {
		params.Metadata[k] = v
	}

	intent, err := g.api(input.APIKey).PaymentIntents.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe payment intent",
			zap.String("order_code", input.OrderCode),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	g.logger.Info("Created Stripe payment intent",
		zap.String("order_code", input.OrderCode),
		zap.String("intent_id", intent.ID))

	return &PaymentIntentOutput{
		IntentID:     intent.ID,
		ClientSecret: intent.ClientSecret,
		Amount:       intent.Amount,
		Status:       string(intent.Status),
	}, nil
}

// EnsurePrice returns the ID of a recurring price matching the lookup key,
// creating the product and price on first use
func (g *StripeGateway) EnsurePrice(ctx context.Context, input EnsurePriceInput) (string, error) {
	api := g.api(input.APIKey)

	listParams := &stripe.PriceListParams{
		LookupKeys: stripe.StringSlice([]string{input.LookupKey}),
	}
	listParams.Context = ctx

	iter := api.Prices.List(listParams)
	for iter.Next() {
		price := iter.Price()
		g.logger.Debug("Reusing existing Stripe price",
			zap.String("lookup_key", input.LookupKey),
			zap.String("price_id", price.ID))
		return price.ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", fmt.Errorf("stripe: failed to list prices: %w", err)
	}

	params := &stripe.PriceParams{
		UnitAmount: stripe.Int64(input.Amount),
		Currency:   stripe.String(input.Currency),
		LookupKey:  stripe.String(input.LookupKey),
		Recurring: &stripe.PriceRecurringParams{
			Interval:      stripe.String(input.Interval),
			IntervalCount: stripe.Int64(input.IntervalCount),
		},
		ProductData: &stripe.PriceProductDataParams{
			Name: stripe.String(input.ProductName),
		},
	}
	params.Context = ctx

	price, err := api.Prices.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe price",
			zap.String("lookup_key", input.LookupKey),
			zap.Error(err))
		return "", fmt.Errorf("stripe: failed to create price: %w", err)
	}

	g.logger.Info("Created Stripe price",
		zap.String("lookup_key", input.LookupKey),
		zap.String("price_id", price.ID),
		zap.Int64("amount", input.Amount))

	return price.ID, nil
}

// CreateSubscription creates a subscription that starts billing at the
// given date. The period already collected through the checkout payment
// intent is covered by a trial ending at that date, and prorations stay
// disabled because proration is computed upstream.
func (g *StripeGateway) CreateSubscription(ctx context.Context, input CreateSubscriptionInput) (*SubscriptionOutput, error) {
	g.logger.Debug("Creating Stripe subscription",
		zap.String("customer_id", input.CustomerID),
		zap.String("price_id", input.PriceID),
		zap.Time("billing_start", input.BillingStartDate))

	params := &stripe.SubscriptionParams{
		Customer:          stripe.String(input.CustomerID),
		ProrationBehavior: stripe.String("none"),
	}
	params.Context = ctx

	item := &stripe.SubscriptionItemsParams{
		Price: stripe.String(input.PriceID),
	}
	if input.Quantity > 1 {
		item.Quantity = stripe.Int64(input.Quantity)
	}
	params.Items = []*stripe.SubscriptionItemsParams{item}

	if input.BillingStartDate.After(time.Now()) {
		params.TrialEnd = stripe.Int64(input.BillingStartDate.Unix())
	}
	if input.PaymentMethodID != "" {
		params.DefaultPaymentMethod = stripe.String(input.PaymentMethodID)
	}
	if len(input.Metadata) > 0 {
		params.Metadata = input.Metadata
	}

	sub, err := g.api(input.APIKey).Subscriptions.New(params)
	if err != nil {
		g.logger.Error("Failed to create Stripe subscription",
			zap.String("customer_id", input.CustomerID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create subscription: %w", err)
	}

	g.logger.Info("Created Stripe subscription",
		zap.String("subscription_id", sub.ID),
		zap.String("status", string(sub.Status)))

	return mapSubscription(sub), nil
}

// CancelSubscriptionAtPeriodEnd schedules a subscription for cancellation
// at the end of its current billing period
func (g *StripeGateway) CancelSubscriptionAtPeriodEnd(ctx context.Context, apiKey, subscriptionID string) (*SubscriptionOutput, error) {
	g.logger.Debug("Canceling Stripe subscription",
		zap.String("subscription_id", subscriptionID))

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(true),
	}
	params.Context = ctx

	sub, err := g.api(apiKey).Subscriptions.Update(subscriptionID, params)
	if err != nil {
		g.logger.Error("Failed to cancel Stripe subscription",
			zap.String("subscription_id", subscriptionID),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to cancel subscription: %w", err)
	}

	g.logger.Info("Canceled Stripe subscription",
		zap.String("subscription_id", sub.ID),
		zap.Bool("cancel_at_period_end", sub.CancelAtPeriodEnd))

	return mapSubscription(sub), nil
}

func mapSubscription(sub *stripe.Subscription) *SubscriptionOutput {
	output := &SubscriptionOutput{
		SubscriptionID:     sub.ID,
		Status:             string(sub.Status),
		CurrentPeriodStart: time.Unix(sub.CurrentPeriodStart, 0),
		CurrentPeriodEnd:   time.Unix(sub.CurrentPeriodEnd, 0),
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		output.CustomerID = sub.Customer.ID
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0)
		output.CanceledAt = &t
	}
	return output
}

// Ensure StripeGateway implements Gateway
var _ Gateway = (*StripeGateway)(nil)
