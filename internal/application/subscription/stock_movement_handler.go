package subscription

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/infrastructure/queue"
	"go.uber.org/zap"
)

// StockMovementHandler reacts to stock returning to the shelf. When a
// RELEASE or CANCELLATION movement touches a line with recorded Stripe
// subscriptions, one cancellation job per line is enqueued. Enqueueing is
// fire-and-forget: a failure is logged, never propagated, so a broken queue
// cannot block the stock workflow that triggered the event.
type StockMovementHandler struct {
	orders   order.Repository
	enqueuer *queue.Enqueuer
	logger   *zap.Logger
}

// NewStockMovementHandler creates a new handler
func NewStockMovementHandler(orders order.Repository, enqueuer *queue.Enqueuer, logger *zap.Logger) *StockMovementHandler {
	return &StockMovementHandler{
		orders:   orders,
		enqueuer: enqueuer,
		logger:   logger,
	}
}

// Handle processes StockMovementEvent
func (h *StockMovementHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	e, ok := event.(*order.StockMovementEvent)
	if !ok {
		return fmt.Errorf("unexpected event type %T", event)
	}

	if !e.Kind.IsCancellationLike() {
		return nil
	}

	o, err := h.orders.FindByID(ctx, e.AggregateID())
	if err != nil {
		h.logger.Error("failed to load order for stock movement",
			zap.String("order_id", e.AggregateID().String()),
			zap.Error(err),
		)
		return nil
	}

	for _, movement := range e.Movements {
		line := o.Line(movement.OrderLineID)
		if line == nil || !line.HasSubscriptions() {
			continue
		}

		payload := CancelSubscriptionsPayload{
			Ctx:         channel.NewRequestContext(e.ChannelToken(), ""),
			OrderLineID: movement.OrderLineID,
		}
		raw, err := EncodePayload(payload)
		if err != nil {
			h.logger.Error("failed to encode cancellation payload",
				zap.String("order_line_id", movement.OrderLineID.String()),
				zap.Error(err),
			)
			continue
		}

		if _, err := h.enqueuer.Enqueue(ctx, QueueCancelSubscriptions, json.RawMessage(raw)); err != nil {
			h.logger.Error("failed to enqueue cancellation job",
				zap.String("order_code", o.Code),
				zap.String("order_line_id", movement.OrderLineID.String()),
				zap.Error(err),
			)
			continue
		}

		h.logger.Info("enqueued subscription cancellation",
			zap.String("order_code", o.Code),
			zap.String("order_line_id", movement.OrderLineID.String()),
			zap.String("movement_kind", string(e.Kind)),
		)
	}

	return nil
}

// EventTypes returns the event types this handler processes
func (h *StockMovementHandler) EventTypes() []string {
	return []string{order.EventTypeStockMovementCreated}
}

var _ shared.EventHandler = (*StockMovementHandler)(nil)
