package subscription

import (
	"time"

	"github.com/commercekit/subscriptions/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Pricing is the computed price breakdown for one subscription line.
// All amounts are minor units in the channel currency.
//
// The rules:
//   - RecurringAmount is the variant's price per billing period; for
//     paid-up-front schedules the whole commitment is one period, so the
//     recurring amount is the per-period price times the number of periods.
//   - DownPayment is an upfront fee charged once at purchase.
//   - Proration applies when the start is anchored away from the time of
//     purchase and the schedule opts in: the fraction of the billing period
//     between purchase and the anchor is charged now.
//   - AmountDueNow = DownPayment + Proration, plus the first recurring charge
//     when the schedule is paid up front. It is collected by the checkout
//     payment intent; the Stripe subscription starts billing only after the
//     period already paid for.
type Pricing struct {
	RecurringAmount   int64
	RecurringInterval Interval
	RecurringCount    int
	DownPayment       int64
	Proration         int64
	AmountDueNow      int64
	// StartDate is the billing anchor
	StartDate time.Time
	// FirstBillingDate is when Stripe takes over recurring charges; the span
	// between purchase and this date is covered by the checkout payment
	FirstBillingDate time.Time
}

// Calculate computes the pricing for a schedule given the variant's
// per-billing-period price in minor units and the purchase time.
func Calculate(s *Schedule, variantPrice int64, now time.Time) Pricing {
	p := Pricing{
		DownPayment: s.DownPayment,
		StartDate:   startDate(s, now),
	}

	if s.PaidUpFront() {
		p.RecurringAmount = variantPrice
		p.RecurringInterval = s.DurationInterval
		p.RecurringCount = s.DurationCount
	} else {
		p.RecurringAmount = variantPrice
		p.RecurringInterval = s.BillingInterval
		p.RecurringCount = s.BillingCount
	}

	if s.UseProration && p.StartDate.After(now) {
		p.Proration = prorate(p.RecurringAmount, s.BillingInterval, s.BillingCount, now, p.StartDate)
	}

	p.AmountDueNow = p.DownPayment + p.Proration
	if s.PaidUpFront() {
		// the entire first (and only) period is collected at checkout
		p.AmountDueNow += p.RecurringAmount
	}
	// the checkout payment always covers through the end of the first
	// period (the line total for recurring schedules, AmountDueNow for
	// paid-up-front ones), so Stripe billing starts one period after the
	// anchor, never at it
	p.FirstBillingDate = p.RecurringInterval.AddTo(p.StartDate, p.RecurringCount)

	return p
}

// Money helpers used for history snapshots

// RecurringMoney returns the recurring amount as Money
func (p Pricing) RecurringMoney(currency valueobject.Currency) valueobject.Money {
	return valueobject.FromMinorUnits(p.RecurringAmount, currency)
}

// DueNowMoney returns the amount due now as Money
func (p Pricing) DueNowMoney(currency valueobject.Currency) valueobject.Money {
	return valueobject.FromMinorUnits(p.AmountDueNow, currency)
}

// startDate resolves the schedule's billing anchor relative to purchase time
func startDate(s *Schedule, now time.Time) time.Time {
	switch s.StartMoment {
	case StartTimeOfPurchase:
		return now
	case StartFixed:
		if s.FixedStartDate != nil {
			return *s.FixedStartDate
		}
		return now
	case StartOfBillingInterval:
		return nextIntervalBoundary(now, s.BillingInterval)
	}
	return now
}

// nextIntervalBoundary returns the start of the next day/week/month/year
func nextIntervalBoundary(t time.Time, interval Interval) time.Time {
	y, m, d := t.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	switch interval {
	case IntervalDay:
		return midnight.AddDate(0, 0, 1)
	case IntervalWeek:
		// ISO week starts Monday
		offset := (8 - int(midnight.Weekday())) % 7
		if offset == 0 {
			offset = 7
		}
		return midnight.AddDate(0, 0, offset)
	case IntervalMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, 0)
	case IntervalYear:
		return time.Date(y, 1, 1, 0, 0, 0, 0, t.Location()).AddDate(1, 0, 0)
	}
	return midnight
}

// prorate charges the fraction of one billing period between purchase and the
// anchored start date
func prorate(recurring int64, interval Interval, count int, now, start time.Time) int64 {
	periodStart := interval.AddTo(start, -count)
	full := start.Sub(periodStart)
	if full <= 0 {
		return 0
	}
	partial := start.Sub(now)
	if partial <= 0 {
		return 0
	}
	if partial > full {
		partial = full
	}
	fraction := decimal.NewFromInt(int64(partial)).Div(decimal.NewFromInt(int64(full)))
	return decimal.NewFromInt(recurring).Mul(fraction).RoundBank(0).IntPart()
}
