package subscription

import (
	"context"

	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared/valueobject"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// HistoryService writes order-scoped audit entries for subscription events.
// Writes are tolerated failures: a history write that errors is logged and
// never aborts the workflow that produced it.
type HistoryService struct {
	repo   order.HistoryRepository
	logger *zap.Logger
}

// NewHistoryService creates a new history service
func NewHistoryService(repo order.HistoryRepository, logger *zap.Logger) *HistoryService {
	return &HistoryService{repo: repo, logger: logger}
}

// pricingSnapshot renders a pricing breakdown with formatted money strings
func pricingSnapshot(p subscription.Pricing, currency valueobject.Currency) order.PricingSnapshot {
	return order.PricingSnapshot{
		RecurringAmount: valueobject.FromMinorUnits(p.RecurringAmount, currency).Format(),
		AmountDueNow:    valueobject.FromMinorUnits(p.AmountDueNow, currency).Format(),
		DownPayment:     valueobject.FromMinorUnits(p.DownPayment, currency).Format(),
		Proration:       valueobject.FromMinorUnits(p.Proration, currency).Format(),
		Interval:        string(p.RecurringInterval),
		IntervalCount:   p.RecurringCount,
	}
}

// SubscriptionCreated records a successful subscription creation
func (s *HistoryService) SubscriptionCreated(ctx context.Context, orderID uuid.UUID, subscriptionID string, pricing subscription.Pricing, currency valueobject.Currency) {
	entry := order.NewHistoryEntry(orderID, order.HistorySubscriptionCreated, "Stripe subscription created").
		WithSubscriptionID(subscriptionID).
		WithPricing(pricingSnapshot(pricing, currency))
	s.append(ctx, entry)
}

// SubscriptionCancelled records a successful at-period-end cancellation
func (s *HistoryService) SubscriptionCancelled(ctx context.Context, orderID uuid.UUID, subscriptionID string) {
	entry := order.NewHistoryEntry(orderID, order.HistorySubscriptionCancelled, "Stripe subscription cancelled at period end").
		WithSubscriptionID(subscriptionID)
	s.append(ctx, entry)
}

// SubscriptionFailure records a failed creation or cancellation attempt
func (s *HistoryService) SubscriptionFailure(ctx context.Context, orderID uuid.UUID, message string, subscriptionID string, err error) {
	entry := order.NewHistoryEntry(orderID, order.HistorySubscriptionFailure, message).
		WithError(err)
	if subscriptionID != "" {
		entry = entry.WithSubscriptionID(subscriptionID)
	}
	s.append(ctx, entry)
}

// RecurringPaymentFailed records a failed recurring invoice with the amount
// rendered as a formatted string
func (s *HistoryService) RecurringPaymentFailed(ctx context.Context, orderID uuid.UUID, subscriptionID string, amountDue valueobject.Money) {
	entry := order.NewHistoryEntry(orderID, order.HistoryRecurringPaymentFailed,
		"Recurring payment of "+amountDue.Format()+" failed").
		WithSubscriptionID(subscriptionID)
	s.append(ctx, entry)
}

// WebhookAnomaly records a webhook that could not be processed normally
func (s *HistoryService) WebhookAnomaly(ctx context.Context, orderID uuid.UUID, message string, err error) {
	entry := order.NewHistoryEntry(orderID, order.HistoryWebhookAnomaly, message)
	if err != nil {
		entry = entry.WithError(err)
	}
	s.append(ctx, entry)
}

// ForOrder returns all history entries for an order, oldest first
func (s *HistoryService) ForOrder(ctx context.Context, orderID uuid.UUID) ([]order.HistoryEntry, error) {
	return s.repo.FindByOrder(ctx, orderID)
}

func (s *HistoryService) append(ctx context.Context, entry *order.HistoryEntry) {
	if err := s.repo.Append(ctx, entry); err != nil {
		s.logger.Error("failed to append order history entry",
			zap.String("order_id", entry.OrderID.String()),
			zap.String("entry_type", string(entry.Type)),
			zap.Error(err),
		)
	}
}
