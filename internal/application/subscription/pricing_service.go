package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PricingService computes subscription pricing previews for the storefront.
// Previews are pure reads, nothing is created at Stripe and no order state
// changes.
type PricingService struct {
	schedules subscription.Repository
	logger    *zap.Logger
}

// NewPricingService creates a new PricingService
func NewPricingService(schedules subscription.Repository, logger *zap.Logger) *PricingService {
	return &PricingService{schedules: schedules, logger: logger}
}

// PricingPreview is the storefront-facing pricing breakdown for one variant
type PricingPreview struct {
	ScheduleID        uuid.UUID `json:"schedule_id"`
	ScheduleName      string    `json:"schedule_name"`
	RecurringAmount   int64     `json:"recurring_amount"`
	RecurringInterval string    `json:"recurring_interval"`
	RecurringCount    int       `json:"recurring_count"`
	DownPayment       int64     `json:"down_payment"`
	Proration         int64     `json:"proration"`
	AmountDueNow      int64     `json:"amount_due_now"`
	StartDate         time.Time `json:"start_date"`
	FirstBillingDate  time.Time `json:"first_billing_date"`
}

// Preview resolves the variant's schedule and computes its pricing for a
// purchase at the given time. The variant's tax-inclusive unit price comes
// from the caller, the catalog is not this service's concern.
func (s *PricingService) Preview(ctx context.Context, variantID uuid.UUID, unitPriceWithTax int64, now time.Time) (*PricingPreview, error) {
	sched, err := s.schedules.FindByVariant(ctx, variantID)
	if err != nil {
		return nil, fmt.Errorf("find schedule for variant %s: %w", variantID, err)
	}

	pricing := subscription.Calculate(sched, unitPriceWithTax, now)

	s.logger.Debug("Computed pricing preview",
		zap.String("variant_id", variantID.String()),
		zap.String("schedule", sched.Name),
		zap.Int64("amount_due_now", pricing.AmountDueNow))

	return &PricingPreview{
		ScheduleID:        sched.ID,
		ScheduleName:      sched.Name,
		RecurringAmount:   pricing.RecurringAmount,
		RecurringInterval: string(pricing.RecurringInterval),
		RecurringCount:    pricing.RecurringCount,
		DownPayment:       pricing.DownPayment,
		Proration:         pricing.Proration,
		AmountDueNow:      pricing.AmountDueNow,
		StartDate:         pricing.StartDate,
		FirstBillingDate:  pricing.FirstBillingDate,
	}, nil
}
