package subscription

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the persistence port for subscription schedules
type Repository interface {
	// FindByID finds a schedule by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Schedule, error)

	// FindByVariant finds the schedule attached to a product variant
	FindByVariant(ctx context.Context, productVariantID uuid.UUID) (*Schedule, error)

	// List returns all schedules
	List(ctx context.Context) ([]Schedule, error)

	// Save persists a schedule
	Save(ctx context.Context, s *Schedule) error

	// AttachVariant attaches a schedule to a product variant
	AttachVariant(ctx context.Context, scheduleID, productVariantID uuid.UUID) error

	// Delete removes a schedule and its variant attachments
	Delete(ctx context.Context, id uuid.UUID) error
}
