package subscription

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/shared/valueobject"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/commercekit/subscriptions/internal/infrastructure/billing"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"go.uber.org/zap"
)

// JobService executes the asynchronous subscription jobs claimed from the
// durable queue
type JobService struct {
	orders    order.Repository
	schedules subscription.Repository
	creds     *CredentialResolver
	gateway   billing.Gateway
	history   *HistoryService
	logger    *zap.Logger
}

// JobServiceConfig contains configuration for JobService
type JobServiceConfig struct {
	Orders    order.Repository
	Schedules subscription.Repository
	Creds     *CredentialResolver
	Gateway   billing.Gateway
	History   *HistoryService
	Logger    *zap.Logger
}

// NewJobService creates a new JobService
func NewJobService(cfg JobServiceConfig) *JobService {
	return &JobService{
		orders:    cfg.Orders,
		schedules: cfg.Schedules,
		creds:     cfg.Creds,
		gateway:   cfg.Gateway,
		history:   cfg.History,
		logger:    cfg.Logger,
	}
}

// HandleJob decodes a job's envelope and dispatches to the matching handler.
// It is registered for both subscription queues; the envelope kind decides,
// so a payload routed to the wrong queue still lands in the right code path.
func (s *JobService) HandleJob(ctx context.Context, job *queue.Job) error {
	payload, err := DecodePayload(job.Payload)
	if err != nil {
		return err
	}

	switch p := payload.(type) {
	case CreateSubscriptionsPayload:
		return s.createSubscriptions(ctx, p)
	case CancelSubscriptionsPayload:
		return s.cancelSubscriptions(ctx, p)
	default:
		return fmt.Errorf("no handler for payload type %T", payload)
	}
}

// createSubscriptions creates one Stripe subscription per subscription line
// of a settled order. Any failure writes a failure history entry and aborts
// with an error; the job is enqueued without retries, so the failure is
// surfaced once in the order history and never blindly re-run.
func (s *JobService) createSubscriptions(ctx context.Context, p CreateSubscriptionsPayload) error {
	if err := p.Ctx.Validate(); err != nil {
		return err
	}

	o, err := s.orders.FindByCode(ctx, p.OrderCode)
	if err != nil {
		return fmt.Errorf("load order %s: %w", p.OrderCode, err)
	}

	creds, err := s.creds.Resolve(ctx, p.Ctx.ChannelToken)
	if err != nil {
		s.history.SubscriptionFailure(ctx, o.ID, "Could not resolve Stripe credentials for channel", "", err)
		return err
	}

	currency := valueobject.Currency(o.CurrencyCode)
	now := time.Now()

	for _, line := range o.Lines {
		if line.SubscriptionHash == "" {
			continue
		}

		sched, err := s.schedules.FindByVariant(ctx, line.ProductVariantID)
		if err != nil {
			err = fmt.Errorf("load schedule for variant %s: %w", line.ProductVariantID, err)
			s.history.SubscriptionFailure(ctx, o.ID, "No subscription schedule found for product variant", "", err)
			return err
		}

		pricing := subscription.Calculate(sched, line.UnitPriceWithTax, now)

		priceID, err := s.gateway.EnsurePrice(ctx, billing.EnsurePriceInput{
			APIKey:        creds.APIKey,
			LookupKey:     priceLookupKey(sched, line, pricing),
			ProductName:   fmt.Sprintf("%s (%s)", line.ProductVariantName, sched.Name),
			Amount:        pricing.RecurringAmount,
			Currency:      strings.ToLower(o.CurrencyCode),
			Interval:      string(pricing.RecurringInterval),
			IntervalCount: int64(pricing.RecurringCount),
		})
		if err != nil {
			s.history.SubscriptionFailure(ctx, o.ID, "Failed to resolve Stripe price", "", err)
			return err
		}

		sub, err := s.gateway.CreateSubscription(ctx, billing.CreateSubscriptionInput{
			APIKey:           creds.APIKey,
			CustomerID:       p.StripeCustomerID,
			PriceID:          priceID,
			Quantity:         int64(line.Quantity),
			PaymentMethodID:  p.StripePaymentMethodID,
			BillingStartDate: pricing.FirstBillingDate,
			Metadata: map[string]string{
				"order_code":       o.Code,
				"order_line_id":    line.ID.String(),
				"channel_token":    p.Ctx.ChannelToken,
				"correlation_hash": line.SubscriptionHash,
			},
		})
		if err != nil {
			s.history.SubscriptionFailure(ctx, o.ID, "Failed to create Stripe subscription", "", err)
			return err
		}

		if err := s.orders.AddLineSubscriptionID(ctx, line.ID, sub.SubscriptionID); err != nil {
			err = fmt.Errorf("record subscription %s on line %s: %w", sub.SubscriptionID, line.ID, err)
			s.history.SubscriptionFailure(ctx, o.ID, "Failed to record created subscription", sub.SubscriptionID, err)
			return err
		}

		s.history.SubscriptionCreated(ctx, o.ID, sub.SubscriptionID, pricing, currency)

		s.logger.Info("created Stripe subscription",
			zap.String("order_code", o.Code),
			zap.String("order_line_id", line.ID.String()),
			zap.String("subscription_id", sub.SubscriptionID),
		)
	}

	return nil
}

// cancelSubscriptions cancels every Stripe subscription recorded on one
// order line. Failures are isolated per subscription ID: each failed ID gets
// its own failure history entry and the rest still cancel. The handler
// returns nil on per-ID failures so the queue never re-runs cancellations
// that already partially succeeded.
func (s *JobService) cancelSubscriptions(ctx context.Context, p CancelSubscriptionsPayload) error {
	o, err := s.orders.FindByOrderLineID(ctx, p.OrderLineID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("cancellation job references unknown order line",
				zap.String("order_line_id", p.OrderLineID.String()),
			)
			return nil
		}
		return fmt.Errorf("load order for line %s: %w", p.OrderLineID, err)
	}

	line := o.Line(p.OrderLineID)
	if line == nil || !line.HasSubscriptions() {
		s.logger.Debug("no subscriptions recorded on line, nothing to cancel",
			zap.String("order_code", o.Code),
			zap.String("order_line_id", p.OrderLineID.String()),
		)
		return nil
	}

	creds, err := s.creds.Resolve(ctx, o.ChannelToken)
	if err != nil {
		return err
	}

	for _, subscriptionID := range line.SubscriptionIDs {
		if _, err := s.gateway.CancelSubscriptionAtPeriodEnd(ctx, creds.APIKey, subscriptionID); err != nil {
			s.logger.Error("failed to cancel Stripe subscription",
				zap.String("order_code", o.Code),
				zap.String("subscription_id", subscriptionID),
				zap.Error(err),
			)
			s.history.SubscriptionFailure(ctx, o.ID, "Failed to cancel Stripe subscription", subscriptionID, err)
			continue
		}
		s.history.SubscriptionCancelled(ctx, o.ID, subscriptionID)
	}

	return nil
}

// priceLookupKey derives the idempotency key for a recurring price. Two
// creations of the same schedule, variant and amount reuse one Stripe price.
func priceLookupKey(sched *subscription.Schedule, line *order.OrderLine, pricing subscription.Pricing) string {
	return fmt.Sprintf("sub-%s-%s-%d", sched.ID, line.ProductVariantID, pricing.RecurringAmount)
}
