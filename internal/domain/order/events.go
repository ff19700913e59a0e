package order

import (
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
)

// Event type constants for order domain events
const (
	EventTypeOrderLineAdded       = "OrderLineAdded"
	EventTypeStockMovementCreated = "StockMovementCreated"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// StockMovementKind classifies a stock movement
type StockMovementKind string

const (
	StockMovementAllocation   StockMovementKind = "ALLOCATION"
	StockMovementSale         StockMovementKind = "SALE"
	StockMovementRelease      StockMovementKind = "RELEASE"
	StockMovementCancellation StockMovementKind = "CANCELLATION"
)

// IsCancellationLike reports whether the movement kind returns stock to the
// shelf, which is the trigger for cancelling provider subscriptions
func (k StockMovementKind) IsCancellationLike() bool {
	return k == StockMovementRelease || k == StockMovementCancellation
}

// OrderLineAddedEvent is published when a line is appended to an order
type OrderLineAddedEvent struct {
	shared.BaseDomainEvent
	OrderCode        string    `json:"order_code"`
	OrderLineID      uuid.UUID `json:"order_line_id"`
	ProductVariantID uuid.UUID `json:"product_variant_id"`
	Quantity         int       `json:"quantity"`
}

// NewOrderLineAddedEvent creates a new OrderLineAddedEvent
func NewOrderLineAddedEvent(o *Order, line *OrderLine) *OrderLineAddedEvent {
	return &OrderLineAddedEvent{
		BaseDomainEvent:  shared.NewBaseDomainEvent(EventTypeOrderLineAdded, AggregateTypeOrder, o.ID, o.ChannelToken),
		OrderCode:        o.Code,
		OrderLineID:      line.ID,
		ProductVariantID: line.ProductVariantID,
		Quantity:         line.Quantity,
	}
}

// StockMovement is one line-level quantity movement within a stock event
type StockMovement struct {
	OrderLineID uuid.UUID `json:"order_line_id"`
	Quantity    int       `json:"quantity"`
}

// StockMovementEvent is published when stock moves for an order's lines
type StockMovementEvent struct {
	shared.BaseDomainEvent
	Kind      StockMovementKind `json:"kind"`
	Movements []StockMovement   `json:"movements"`
}

// NewStockMovementEvent creates a new StockMovementEvent
func NewStockMovementEvent(o *Order, kind StockMovementKind, movements []StockMovement) *StockMovementEvent {
	return &StockMovementEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockMovementCreated, AggregateTypeOrder, o.ID, o.ChannelToken),
		Kind:            kind,
		Movements:       movements,
	}
}
