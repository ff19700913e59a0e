package order

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for orders.
// Implementations must hydrate Lines (and Customer where noted) so the
// orchestration handlers can read extension fields without extra round trips.
type Repository interface {
	// FindByID finds an order by ID with lines hydrated
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)

	// FindByCode finds an order by its code with customer and lines hydrated
	FindByCode(ctx context.Context, code string) (*Order, error)

	// FindByOrderLineID finds the order that owns the given line, lines hydrated
	FindByOrderLineID(ctx context.Context, lineID uuid.UUID) (*Order, error)

	// FindBySubscriptionID finds the order owning a line that recorded the
	// given provider subscription identifier
	FindBySubscriptionID(ctx context.Context, subscriptionID string) (*Order, error)

	// FindActiveByCustomer finds the customer's current AddingItems or
	// ArrangingPayment order for a channel
	FindActiveByCustomer(ctx context.Context, channelToken string, customerID uuid.UUID) (*Order, error)

	// Save persists the order and its owned rows
	Save(ctx context.Context, o *Order) error

	// UpdateLineSubscriptionHash persists a line's correlation hash by line ID
	UpdateLineSubscriptionHash(ctx context.Context, lineID uuid.UUID, hash string) error

	// AddLineSubscriptionID appends a provider subscription identifier to a line
	AddLineSubscriptionID(ctx context.Context, lineID uuid.UUID, subscriptionID string) error
}

// HistoryRepository is the append-only audit log keyed by order ID
type HistoryRepository interface {
	// Append persists a history entry
	Append(ctx context.Context, entry *HistoryEntry) error

	// FindByOrder returns all entries for an order, oldest first
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]HistoryEntry, error)
}
