package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/shared/valueobject"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/webhook"
	"go.uber.org/zap"
)

// WebhookService handles Stripe webhook events for a channel
type WebhookService struct {
	creds       *CredentialResolver
	orders      order.Repository
	enqueuer    *queue.Enqueuer
	idempotency shared.IdempotencyStore
	history     *HistoryService
	dedupeTTL   time.Duration
	logger      *zap.Logger
}

// WebhookServiceConfig contains configuration for WebhookService
type WebhookServiceConfig struct {
	Creds       *CredentialResolver
	Orders      order.Repository
	Enqueuer    *queue.Enqueuer
	Idempotency shared.IdempotencyStore
	History     *HistoryService
	DedupeTTL   time.Duration
	Logger      *zap.Logger
}

// NewWebhookService creates a new WebhookService
func NewWebhookService(cfg WebhookServiceConfig) *WebhookService {
	ttl := cfg.DedupeTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WebhookService{
		creds:       cfg.Creds,
		orders:      cfg.Orders,
		enqueuer:    cfg.Enqueuer,
		idempotency: cfg.Idempotency,
		history:     cfg.History,
		dedupeTTL:   ttl,
		logger:      cfg.Logger,
	}
}

// WebhookResult contains the result of processing a webhook
type WebhookResult struct {
	EventID   string `json:"event_id"`
	EventType string `json:"event_type"`
	Processed bool   `json:"processed"`
	Message   string `json:"message,omitempty"`
}

// ProcessWebhook verifies, dedupes and dispatches a Stripe webhook event.
// Stripe delivers at least once; the idempotency store makes redeliveries
// no-ops so a creation job is never enqueued twice for one event. Only a
// successfully handled event stays marked, a failed one is released so the
// redelivery gets another attempt.
func (s *WebhookService) ProcessWebhook(ctx context.Context, channelToken string, payload []byte, signature string) (*WebhookResult, error) {
	creds, err := s.creds.Resolve(ctx, channelToken)
	if err != nil {
		return nil, err
	}

	event, err := webhook.ConstructEvent(payload, signature, creds.WebhookSecret)
	if err != nil {
		s.logger.Error("Failed to verify webhook signature",
			zap.String("channel_token", channelToken),
			zap.Error(err))
		return nil, fmt.Errorf("webhook signature verification failed: %w", err)
	}

	result := &WebhookResult{
		EventID:   event.ID,
		EventType: string(event.Type),
		Processed: true,
	}

	fresh, err := s.idempotency.MarkProcessed(ctx, event.ID, s.dedupeTTL)
	if err != nil {
		return nil, fmt.Errorf("webhook dedupe check failed: %w", err)
	}
	if !fresh {
		s.logger.Info("Skipping redelivered webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
		result.Message = "Duplicate delivery"
		return result, nil
	}

	s.logger.Info("Processing Stripe webhook event",
		zap.String("channel_token", channelToken),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)))

	switch event.Type {
	case "payment_intent.succeeded":
		err = s.handlePaymentIntentSucceeded(ctx, channelToken, event)
	case "invoice.payment_failed":
		err = s.handleInvoicePaymentFailed(ctx, event)
	default:
		s.logger.Debug("Unhandled webhook event type",
			zap.String("event_type", string(event.Type)))
		result.Message = "Event type not handled"
	}

	if err != nil {
		s.logger.Error("Failed to process webhook event",
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)),
			zap.Error(err))
		// release the dedupe key, otherwise Stripe's redelivery of this
		// event would be answered as a duplicate and never processed
		if forgetErr := s.idempotency.Forget(ctx, event.ID); forgetErr != nil {
			s.logger.Error("Failed to release webhook dedupe key",
				zap.String("event_id", event.ID),
				zap.Error(forgetErr))
		}
		result.Processed = false
		result.Message = err.Error()
		return result, err
	}

	return result, nil
}

// handlePaymentIntentSucceeded reacts to a settled checkout payment: enqueue
// the subscription creation job, move the order forward and record the
// payment. The Stripe customer ID is required before any other effect, a
// webhook without one must change nothing.
func (s *WebhookService) handlePaymentIntentSucceeded(ctx context.Context, channelToken string, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return fmt.Errorf("failed to unmarshal payment intent: %w", err)
	}

	orderCode := intent.Metadata["order_code"]
	if orderCode == "" {
		return fmt.Errorf("payment intent %s carries no order code", intent.ID)
	}

	o, err := s.orders.FindByCode(ctx, orderCode)
	if err != nil {
		return fmt.Errorf("load order %s: %w", orderCode, err)
	}

	customerID := ""
	if intent.Customer != nil {
		customerID = intent.Customer.ID
	}
	if customerID == "" {
		err := fmt.Errorf("payment intent %s has no Stripe customer", intent.ID)
		s.history.WebhookAnomaly(ctx, o.ID, "Payment settled without a Stripe customer, no subscriptions created", err)
		return err
	}

	paymentMethodID := ""
	if intent.PaymentMethod != nil {
		paymentMethodID = intent.PaymentMethod.ID
	}

	reqCtx := channel.NewRequestContext(channelToken, "")
	reqCtx.ActiveOrderID = &o.ID
	if o.CustomerID != nil {
		reqCtx.CustomerID = o.CustomerID
	}

	raw, err := EncodePayload(CreateSubscriptionsPayload{
		Ctx:                   reqCtx,
		OrderCode:             o.Code,
		StripeCustomerID:      customerID,
		StripePaymentMethodID: paymentMethodID,
	})
	if err != nil {
		return err
	}

	// Creation jobs run exactly once: a failed creation is surfaced in the
	// order history, retrying could double-charge
	if _, err := s.enqueuer.Enqueue(ctx, QueueCreateSubscriptions, json.RawMessage(raw), queue.WithMaxRetries(0)); err != nil {
		return fmt.Errorf("enqueue subscription creation for order %s: %w", o.Code, err)
	}

	if o.State != order.StateArrangingPayment {
		if err := o.TransitionTo(order.StateArrangingPayment); err != nil {
			return fmt.Errorf("transition order %s for settlement: %w", o.Code, err)
		}
	}

	if _, err := o.SettlePayment(intent.ID, channel.StripeSubscriptionHandlerCode, intent.Amount); err != nil {
		return fmt.Errorf("settle payment for order %s: %w", o.Code, err)
	}

	if err := s.orders.Save(ctx, o); err != nil {
		return fmt.Errorf("persist order %s: %w", o.Code, err)
	}

	s.logger.Info("Settled checkout payment",
		zap.String("order_code", o.Code),
		zap.String("payment_intent_id", intent.ID),
		zap.Int64("amount", intent.Amount))

	return nil
}

// handleInvoicePaymentFailed records a failed recurring charge in the order
// history. Nothing is aborted: dunning is Stripe's concern, the platform
// only surfaces the failure to operators.
func (s *WebhookService) handleInvoicePaymentFailed(ctx context.Context, event stripe.Event) error {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		return fmt.Errorf("failed to unmarshal invoice: %w", err)
	}

	if invoice.Subscription == nil {
		s.logger.Debug("Ignoring payment failure for non-subscription invoice",
			zap.String("invoice_id", invoice.ID))
		return nil
	}
	subscriptionID := invoice.Subscription.ID

	o, err := s.orders.FindBySubscriptionID(ctx, subscriptionID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("Payment failed for a subscription with no known order",
				zap.String("subscription_id", subscriptionID),
				zap.String("invoice_id", invoice.ID))
			return nil
		}
		return fmt.Errorf("find order for subscription %s: %w", subscriptionID, err)
	}

	currency := valueobject.Currency(strings.ToUpper(string(invoice.Currency)))
	if currency == "" {
		currency = valueobject.Currency(o.CurrencyCode)
	}
	amount := valueobject.FromMinorUnits(invoice.AmountDue, currency)

	s.history.RecurringPaymentFailed(ctx, o.ID, subscriptionID, amount)

	s.logger.Info("Recorded failed recurring payment",
		zap.String("order_code", o.Code),
		zap.String("subscription_id", subscriptionID),
		zap.String("amount", amount.Format()))

	return nil
}
