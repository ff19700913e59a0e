package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var purchaseTime = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func monthlySchedule(t *testing.T) *Schedule {
	t.Helper()
	s, err := NewSchedule("Monthly, 6 month commitment", IntervalMonth, 6, IntervalMonth, 1)
	require.NoError(t, err)
	return s
}

func TestCalculate_SimpleMonthly(t *testing.T) {
	s := monthlySchedule(t)

	p := Calculate(s, 1999, purchaseTime)

	assert.Equal(t, int64(1999), p.RecurringAmount)
	assert.Equal(t, IntervalMonth, p.RecurringInterval)
	assert.Equal(t, 1, p.RecurringCount)
	assert.Equal(t, int64(0), p.AmountDueNow)
	assert.Equal(t, purchaseTime, p.StartDate)
	assert.Equal(t, purchaseTime.AddDate(0, 1, 0), p.FirstBillingDate)
}

func TestCalculate_FirstBillingDateAfterCollectedPeriod(t *testing.T) {
	// the checkout intent collects the first period through the order line
	// total; recurring billing starting at the anchor would invoice that
	// same period a second time
	s := monthlySchedule(t)
	p := Calculate(s, 1999, purchaseTime)
	assert.True(t, p.FirstBillingDate.After(p.StartDate))

	s.StartMoment = StartOfBillingInterval
	s.UseProration = true
	p = Calculate(s, 1999, purchaseTime)
	assert.True(t, p.FirstBillingDate.After(p.StartDate))
	assert.Equal(t, IntervalMonth.AddTo(p.StartDate, 1), p.FirstBillingDate)
}

func TestCalculate_DownPayment(t *testing.T) {
	s := monthlySchedule(t)
	s.DownPayment = 5000

	p := Calculate(s, 1999, purchaseTime)

	assert.Equal(t, int64(5000), p.DownPayment)
	assert.Equal(t, int64(5000), p.AmountDueNow)
	assert.Equal(t, int64(1999), p.RecurringAmount)
}

func TestCalculate_PaidUpFront(t *testing.T) {
	s, err := NewSchedule("Six months upfront", IntervalMonth, 6, IntervalMonth, 6)
	require.NoError(t, err)
	require.True(t, s.PaidUpFront())

	p := Calculate(s, 11994, purchaseTime)

	// whole commitment collected at checkout, Stripe billing starts after it
	assert.Equal(t, int64(11994), p.AmountDueNow)
	assert.Equal(t, int64(11994), p.RecurringAmount)
	assert.Equal(t, IntervalMonth, p.RecurringInterval)
	assert.Equal(t, 6, p.RecurringCount)
	assert.Equal(t, purchaseTime.AddDate(0, 6, 0), p.FirstBillingDate)
}

func TestCalculate_ProrationToMonthBoundary(t *testing.T) {
	s := monthlySchedule(t)
	s.StartMoment = StartOfBillingInterval
	s.UseProration = true

	p := Calculate(s, 3100, purchaseTime)

	// anchor is April 1st
	expectedStart := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, expectedStart, p.StartDate)

	// purchase on March 15th 10:00, period March 1st..April 1st (31 days);
	// remaining span is 16 days 14 hours of 744 hours
	assert.Greater(t, p.Proration, int64(0))
	assert.Less(t, p.Proration, int64(3100))
	assert.Equal(t, p.Proration, p.AmountDueNow)
}

func TestCalculate_NoProrationWhenDisabled(t *testing.T) {
	s := monthlySchedule(t)
	s.StartMoment = StartOfBillingInterval
	s.UseProration = false

	p := Calculate(s, 3100, purchaseTime)
	assert.Equal(t, int64(0), p.Proration)
	assert.Equal(t, int64(0), p.AmountDueNow)
}

func TestCalculate_FixedStartDate(t *testing.T) {
	fixed := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	s := monthlySchedule(t)
	s.StartMoment = StartFixed
	s.FixedStartDate = &fixed

	p := Calculate(s, 1999, purchaseTime)
	assert.Equal(t, fixed, p.StartDate)
	assert.Equal(t, fixed.AddDate(0, 1, 0), p.FirstBillingDate)
}

func TestSchedule_Validate(t *testing.T) {
	_, err := NewSchedule("", IntervalMonth, 6, IntervalMonth, 1)
	assert.Error(t, err)

	_, err = NewSchedule("bad duration", IntervalMonth, 0, IntervalMonth, 1)
	assert.Error(t, err)

	_, err = NewSchedule("bad interval", Interval("fortnight"), 6, IntervalMonth, 1)
	assert.Error(t, err)

	s := monthlySchedule(t)
	s.StartMoment = StartFixed
	s.FixedStartDate = nil
	assert.Error(t, s.Validate())
}

func TestSchedule_BillingPeriodsInDuration(t *testing.T) {
	s := monthlySchedule(t)
	assert.Equal(t, 6, s.BillingPeriodsInDuration(purchaseTime))

	weekly, err := NewSchedule("Weekly for 3 months", IntervalMonth, 3, IntervalWeek, 1)
	require.NoError(t, err)
	// 13 whole weeks fit in March 15 .. June 15
	assert.Equal(t, 13, weekly.BillingPeriodsInDuration(purchaseTime))
}

func TestNextIntervalBoundary_Week(t *testing.T) {
	// March 15th 2024 is a Friday; next Monday is the 18th
	b := nextIntervalBoundary(purchaseTime, IntervalWeek)
	assert.Equal(t, time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC), b)

	// from a Monday, the boundary is the following Monday
	monday := time.Date(2024, 3, 18, 9, 0, 0, 0, time.UTC)
	b = nextIntervalBoundary(monday, IntervalWeek)
	assert.Equal(t, time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC), b)
}
