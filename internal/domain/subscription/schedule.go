package subscription

import (
	"time"

	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
)

// Interval is a recurring-billing interval unit
type Interval string

const (
	IntervalDay   Interval = "day"
	IntervalWeek  Interval = "week"
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

// IsValid checks if the interval is a known unit
func (i Interval) IsValid() bool {
	switch i {
	case IntervalDay, IntervalWeek, IntervalMonth, IntervalYear:
		return true
	}
	return false
}

// AddTo returns t advanced by count intervals
func (i Interval) AddTo(t time.Time, count int) time.Time {
	switch i {
	case IntervalDay:
		return t.AddDate(0, 0, count)
	case IntervalWeek:
		return t.AddDate(0, 0, 7*count)
	case IntervalMonth:
		return t.AddDate(0, count, 0)
	case IntervalYear:
		return t.AddDate(count, 0, 0)
	}
	return t
}

// StartMoment determines when a subscription's billing anchor falls
type StartMoment string

const (
	// StartTimeOfPurchase anchors billing to the moment of purchase
	StartTimeOfPurchase StartMoment = "time_of_purchase"
	// StartOfBillingInterval anchors billing to the next calendar boundary of
	// the billing interval (start of next week/month/year)
	StartOfBillingInterval StartMoment = "start_of_billing_interval"
	// StartFixed anchors billing to the schedule's fixed start date
	StartFixed StartMoment = "fixed_start_date"
)

// IsValid checks if the start moment is known
func (m StartMoment) IsValid() bool {
	switch m {
	case StartTimeOfPurchase, StartOfBillingInterval, StartFixed:
		return true
	}
	return false
}

// Schedule is a configured recurring-billing plan attachable to a product
// variant. Monetary fields are minor units in the channel currency.
type Schedule struct {
	shared.BaseEntity
	Name string `gorm:"not null"`

	// Commitment: the total duration the customer signs up for
	DurationInterval Interval `gorm:"not null"`
	DurationCount    int      `gorm:"not null"`

	// Billing cadence within the commitment
	BillingInterval Interval `gorm:"not null"`
	BillingCount    int      `gorm:"not null"`

	// DownPayment is a one-off upfront fee charged at purchase
	DownPayment int64 `gorm:"not null;default:0"`

	StartMoment    StartMoment `gorm:"not null;default:time_of_purchase"`
	FixedStartDate *time.Time

	// UseProration charges the partial period between purchase and an
	// anchored start date at purchase time
	UseProration bool `gorm:"not null;default:false"`

	AutoRenew bool `gorm:"not null;default:true"`
}

// TableName overrides the gorm table name
func (Schedule) TableName() string {
	return "subscription_schedules"
}

// NewSchedule creates a schedule after validating its intervals
func NewSchedule(name string, durationInterval Interval, durationCount int, billingInterval Interval, billingCount int) (*Schedule, error) {
	s := &Schedule{
		BaseEntity:       shared.NewBaseEntity(),
		Name:             name,
		DurationInterval: durationInterval,
		DurationCount:    durationCount,
		BillingInterval:  billingInterval,
		BillingCount:     billingCount,
		StartMoment:      StartTimeOfPurchase,
		AutoRenew:        true,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the schedule's invariants
func (s *Schedule) Validate() error {
	if s.Name == "" {
		return shared.NewDomainError("INVALID_SCHEDULE", "Schedule name cannot be empty")
	}
	if !s.DurationInterval.IsValid() || s.DurationCount <= 0 {
		return shared.NewDomainError("INVALID_SCHEDULE", "Schedule duration is invalid")
	}
	if !s.BillingInterval.IsValid() || s.BillingCount <= 0 {
		return shared.NewDomainError("INVALID_SCHEDULE", "Schedule billing cadence is invalid")
	}
	if !s.StartMoment.IsValid() {
		return shared.NewDomainError("INVALID_SCHEDULE", "Schedule start moment is invalid")
	}
	if s.StartMoment == StartFixed && s.FixedStartDate == nil {
		return shared.NewDomainError("INVALID_SCHEDULE", "Fixed start moment requires a start date")
	}
	if s.DownPayment < 0 {
		return shared.NewDomainError("INVALID_SCHEDULE", "Down payment cannot be negative")
	}
	return nil
}

// PaidUpFront reports whether the whole commitment is billed in one charge:
// the billing cadence equals the commitment duration
func (s *Schedule) PaidUpFront() bool {
	return s.BillingInterval == s.DurationInterval && s.BillingCount == s.DurationCount
}

// BillingPeriodsInDuration returns how many billing periods fit in the
// commitment. Only same-unit cadences divide exactly; mixed units use the
// calendar to count whole periods.
func (s *Schedule) BillingPeriodsInDuration(from time.Time) int {
	if s.BillingInterval == s.DurationInterval {
		if s.BillingCount == 0 {
			return 0
		}
		return s.DurationCount / s.BillingCount
	}
	end := s.DurationInterval.AddTo(from, s.DurationCount)
	periods := 0
	cursor := from
	for {
		cursor = s.BillingInterval.AddTo(cursor, s.BillingCount)
		if cursor.After(end) {
			break
		}
		periods++
	}
	return periods
}

// ScheduleVariant attaches a schedule to a product variant
type ScheduleVariant struct {
	ScheduleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ProductVariantID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
}

// TableName overrides the gorm table name
func (ScheduleVariant) TableName() string {
	return "subscription_schedule_variants"
}
