package order

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
)

// HistoryEntryType classifies an order history entry
type HistoryEntryType string

const (
	HistorySubscriptionCreated      HistoryEntryType = "SUBSCRIPTION_CREATED"
	HistorySubscriptionCancelled    HistoryEntryType = "SUBSCRIPTION_CANCELLED"
	HistorySubscriptionFailure      HistoryEntryType = "SUBSCRIPTION_FAILURE"
	HistoryRecurringPaymentFailed   HistoryEntryType = "RECURRING_PAYMENT_FAILED"
	HistoryWebhookAnomaly           HistoryEntryType = "WEBHOOK_ANOMALY"
)

// ErrorSnapshot is a plain serializable reduction of an error, safe to persist
type ErrorSnapshot struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// SnapshotError reduces any error to an ErrorSnapshot
func SnapshotError(err error) *ErrorSnapshot {
	if err == nil {
		return nil
	}
	snap := &ErrorSnapshot{Message: err.Error()}
	var de *shared.DomainError
	if errors.As(err, &de) {
		snap.Code = de.Code
	}
	return snap
}

// PricingSnapshot captures subscription pricing at the time of an event,
// monetary fields rendered as formatted strings
type PricingSnapshot struct {
	RecurringAmount string `json:"recurring_amount,omitempty"`
	AmountDueNow    string `json:"amount_due_now,omitempty"`
	DownPayment     string `json:"down_payment,omitempty"`
	Proration       string `json:"proration,omitempty"`
	Interval        string `json:"interval,omitempty"`
	IntervalCount   int    `json:"interval_count,omitempty"`
}

// jsonColumn persists an arbitrary snapshot struct as a JSON column
type jsonColumn[T any] struct {
	V *T
}

func (c jsonColumn[T]) Value() (driver.Value, error) {
	if c.V == nil {
		return nil, nil
	}
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (c *jsonColumn[T]) Scan(value interface{}) error {
	if value == nil {
		c.V = nil
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into json column", value)
	}
	c.V = new(T)
	return json.Unmarshal(raw, c.V)
}

// ErrorColumn is an ErrorSnapshot stored as JSON
type ErrorColumn = jsonColumn[ErrorSnapshot]

// PricingColumn is a PricingSnapshot stored as JSON
type PricingColumn = jsonColumn[PricingSnapshot]

// HistoryEntry is an append-only audit record attached to an order
type HistoryEntry struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey"`
	OrderID        uuid.UUID        `gorm:"type:uuid;not null;index"`
	Type           HistoryEntryType `gorm:"not null;index"`
	Message        string           `gorm:"not null"`
	Error          ErrorColumn      `gorm:"type:text"`
	Pricing        PricingColumn    `gorm:"type:text"`
	SubscriptionID string           `gorm:"index"`
	CreatedAt      time.Time
}

// TableName overrides the gorm table name
func (HistoryEntry) TableName() string {
	return "order_history_entries"
}

// NewHistoryEntry creates a history entry for an order
func NewHistoryEntry(orderID uuid.UUID, entryType HistoryEntryType, message string) *HistoryEntry {
	return &HistoryEntry{
		ID:        uuid.New(),
		OrderID:   orderID,
		Type:      entryType,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// WithError attaches an error snapshot
func (e *HistoryEntry) WithError(err error) *HistoryEntry {
	e.Error = ErrorColumn{V: SnapshotError(err)}
	return e
}

// WithPricing attaches a pricing snapshot
func (e *HistoryEntry) WithPricing(p PricingSnapshot) *HistoryEntry {
	e.Pricing = PricingColumn{V: &p}
	return e
}

// WithSubscriptionID attaches a provider subscription identifier
func (e *HistoryEntry) WithSubscriptionID(id string) *HistoryEntry {
	e.SubscriptionID = id
	return e
}
