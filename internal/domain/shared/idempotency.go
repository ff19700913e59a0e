package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed event IDs to prevent duplicate processing.
// Stripe delivers webhook events at least once; the store lets the webhook
// service detect redeliveries before enqueuing jobs a second time.
type IdempotencyStore interface {
	// MarkProcessed marks an event as processed with a TTL
	// Returns true if the event was newly marked, false if it was already processed
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if an event has already been processed
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	// Forget releases a previously marked event so a redelivery is
	// processed again. Used when handling failed after the mark.
	Forget(ctx context.Context, eventID string) error

	// Close closes the store and releases resources
	Close() error
}
