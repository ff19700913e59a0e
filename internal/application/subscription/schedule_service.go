package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/subscription"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ScheduleService manages subscription schedules for the admin surface
type ScheduleService struct {
	schedules subscription.Repository
	logger    *zap.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(schedules subscription.Repository, logger *zap.Logger) *ScheduleService {
	return &ScheduleService{schedules: schedules, logger: logger}
}

// CreateScheduleInput holds parameters for creating a schedule
type CreateScheduleInput struct {
	Name             string
	DurationInterval subscription.Interval
	DurationCount    int
	BillingInterval  subscription.Interval
	BillingCount     int
	DownPayment      int64
	StartMoment      subscription.StartMoment
	FixedStartDate   *time.Time
	UseProration     bool
	AutoRenew        bool
}

// Create validates and persists a new schedule
func (s *ScheduleService) Create(ctx context.Context, input CreateScheduleInput) (*subscription.Schedule, error) {
	sched, err := subscription.NewSchedule(input.Name, input.DurationInterval, input.DurationCount, input.BillingInterval, input.BillingCount)
	if err != nil {
		return nil, err
	}

	sched.DownPayment = input.DownPayment
	sched.UseProration = input.UseProration
	sched.AutoRenew = input.AutoRenew
	if input.StartMoment != "" {
		sched.StartMoment = input.StartMoment
	}
	sched.FixedStartDate = input.FixedStartDate
	if err := sched.Validate(); err != nil {
		return nil, err
	}

	if err := s.schedules.Save(ctx, sched); err != nil {
		return nil, fmt.Errorf("persist schedule: %w", err)
	}

	s.logger.Info("Created subscription schedule",
		zap.String("schedule_id", sched.ID.String()),
		zap.String("name", sched.Name))

	return sched, nil
}

// Update applies the input to an existing schedule
func (s *ScheduleService) Update(ctx context.Context, id uuid.UUID, input CreateScheduleInput) (*subscription.Schedule, error) {
	sched, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	sched.Name = input.Name
	sched.DurationInterval = input.DurationInterval
	sched.DurationCount = input.DurationCount
	sched.BillingInterval = input.BillingInterval
	sched.BillingCount = input.BillingCount
	sched.DownPayment = input.DownPayment
	sched.UseProration = input.UseProration
	sched.AutoRenew = input.AutoRenew
	if input.StartMoment != "" {
		sched.StartMoment = input.StartMoment
	}
	sched.FixedStartDate = input.FixedStartDate
	sched.UpdatedAt = time.Now()

	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if err := s.schedules.Save(ctx, sched); err != nil {
		return nil, fmt.Errorf("persist schedule: %w", err)
	}

	return sched, nil
}

// Get returns a schedule by ID
func (s *ScheduleService) Get(ctx context.Context, id uuid.UUID) (*subscription.Schedule, error) {
	return s.schedules.FindByID(ctx, id)
}

// List returns all schedules
func (s *ScheduleService) List(ctx context.Context) ([]subscription.Schedule, error) {
	return s.schedules.List(ctx)
}

// AttachVariant attaches a schedule to a product variant
func (s *ScheduleService) AttachVariant(ctx context.Context, scheduleID, variantID uuid.UUID) error {
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		return err
	}
	if err := s.schedules.AttachVariant(ctx, scheduleID, variantID); err != nil {
		return fmt.Errorf("attach variant: %w", err)
	}

	s.logger.Info("Attached variant to schedule",
		zap.String("schedule_id", scheduleID.String()),
		zap.String("variant_id", variantID.String()))

	return nil
}

// Delete removes a schedule and its variant attachments
func (s *ScheduleService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.schedules.FindByID(ctx, id); err != nil {
		return err
	}
	return s.schedules.Delete(ctx, id)
}
