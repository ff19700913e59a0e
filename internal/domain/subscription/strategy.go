package subscription

import (
	"context"
	"errors"

	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
)

// Strategy decides whether an order line represents a subscription.
// Alternate detection policies can be substituted without touching the
// orchestration logic.
type Strategy interface {
	// IsSubscription reports whether the given product variant should be
	// treated as a subscription purchase
	IsSubscription(ctx context.Context, productVariantID uuid.UUID) (bool, error)
}

// ScheduleStrategy is the default Strategy: a variant is a subscription when
// a schedule is attached to it
type ScheduleStrategy struct {
	schedules Repository
}

// NewScheduleStrategy creates the default schedule-backed strategy
func NewScheduleStrategy(schedules Repository) *ScheduleStrategy {
	return &ScheduleStrategy{schedules: schedules}
}

// IsSubscription implements Strategy
func (s *ScheduleStrategy) IsSubscription(ctx context.Context, productVariantID uuid.UUID) (bool, error) {
	_, err := s.schedules.FindByVariant(ctx, productVariantID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

var _ Strategy = (*ScheduleStrategy)(nil)
