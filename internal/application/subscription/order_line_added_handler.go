package subscription

import (
	"context"
	"fmt"

	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"go.uber.org/zap"
)

// OrderLineAddedHandler marks subscription lines with a correlation hash the
// moment they enter the cart. The hash makes otherwise-identical subscription
// lines distinct so they never merge; it carries no provider meaning. The
// assignment is a synchronous read-modify-write without locking: concurrent
// adds of the same line are a tolerated race, the last write wins and any
// winner is an equally valid random hash.
type OrderLineAddedHandler struct {
	orders   order.Repository
	strategy subscription.Strategy
	logger   *zap.Logger
}

// NewOrderLineAddedHandler creates a new handler
func NewOrderLineAddedHandler(orders order.Repository, strategy subscription.Strategy, logger *zap.Logger) *OrderLineAddedHandler {
	return &OrderLineAddedHandler{
		orders:   orders,
		strategy: strategy,
		logger:   logger,
	}
}

// Handle processes OrderLineAddedEvent
func (h *OrderLineAddedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*order.OrderLineAddedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	isSubscription, err := h.strategy.IsSubscription(ctx, e.ProductVariantID)
	if err != nil {
		return fmt.Errorf("classify order line %s: %w", e.OrderLineID, err)
	}
	if !isSubscription {
		return nil
	}

	hash := order.NewCorrelationHash()
	if err := h.orders.UpdateLineSubscriptionHash(ctx, e.OrderLineID, hash); err != nil {
		return fmt.Errorf("assign correlation hash to line %s: %w", e.OrderLineID, err)
	}

	h.logger.Debug("assigned subscription correlation hash",
		zap.String("order_code", e.OrderCode),
		zap.String("order_line_id", e.OrderLineID.String()),
		zap.String("hash", hash),
	)

	return nil
}

// EventTypes returns the event types this handler processes
func (h *OrderLineAddedHandler) EventTypes() []string {
	return []string{order.EventTypeOrderLineAdded}
}

var _ shared.EventHandler = (*OrderLineAddedHandler)(nil)
