package order

import (
	"crypto/rand"
	"database/sql/driver"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/commercekit/subscriptions/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// OrderState represents the lifecycle state of an order
type OrderState string

const (
	StateAddingItems      OrderState = "ADDING_ITEMS"
	StateArrangingPayment OrderState = "ARRANGING_PAYMENT"
	StatePaymentSettled   OrderState = "PAYMENT_SETTLED"
	StateShipped          OrderState = "SHIPPED"
	StateDelivered        OrderState = "DELIVERED"
	StateCancelled        OrderState = "CANCELLED"
)

// IsValid checks if the state is a valid OrderState
func (s OrderState) IsValid() bool {
	switch s {
	case StateAddingItems, StateArrangingPayment, StatePaymentSettled, StateShipped, StateDelivered, StateCancelled:
		return true
	}
	return false
}

// String returns the string representation of OrderState
func (s OrderState) String() string {
	return string(s)
}

// CanTransitionTo checks if the state can transition to the target state
func (s OrderState) CanTransitionTo(target OrderState) bool {
	switch s {
	case StateAddingItems:
		return target == StateArrangingPayment || target == StateCancelled
	case StateArrangingPayment:
		return target == StatePaymentSettled || target == StateAddingItems || target == StateCancelled
	case StatePaymentSettled:
		return target == StateShipped || target == StateCancelled
	case StateShipped:
		return target == StateDelivered || target == StateCancelled
	case StateDelivered, StateCancelled:
		return false // Terminal states
	}
	return false
}

// StringList stores a list of opaque identifier strings as a JSON column
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}
}

// Customer is the order's customer as known to the commerce platform
type Customer struct {
	shared.BaseEntity
	Email     string `gorm:"not null;index"`
	FirstName string
	LastName  string
}

// TableName overrides the gorm table name
func (Customer) TableName() string {
	return "customers"
}

// OrderLine is one product-variant quantity entry within an order.
// SubscriptionHash and SubscriptionIDs are the provider-specific extension
// fields: the hash is an advisory per-line marker assigned once at creation
// for subscription lines, the IDs are Stripe subscription identifiers written
// back after successful creation (zero or more).
type OrderLine struct {
	shared.BaseEntity
	OrderID            uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductVariantID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductVariantName string
	Quantity           int        `gorm:"not null"`
	UnitPriceWithTax   int64      `gorm:"not null"` // minor units
	SubscriptionHash   string     `gorm:"index"`
	SubscriptionIDs    StringList `gorm:"type:text"`
}

// TableName overrides the gorm table name
func (OrderLine) TableName() string {
	return "order_lines"
}

// LineTotalWithTax returns the tax-inclusive line total in minor units
func (l *OrderLine) LineTotalWithTax() int64 {
	return l.UnitPriceWithTax * int64(l.Quantity)
}

// HasSubscriptions reports whether provider subscriptions were created for this line
func (l *OrderLine) HasSubscriptions() bool {
	return len(l.SubscriptionIDs) > 0
}

// Surcharge is an order-level charge not attached to any line
type Surcharge struct {
	shared.BaseEntity
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index"`
	Description    string    `gorm:"not null"`
	AmountWithTax  int64     `gorm:"not null"` // minor units
}

// TableName overrides the gorm table name
func (Surcharge) TableName() string {
	return "order_surcharges"
}

// Payment records a settled payment against an order
type Payment struct {
	shared.BaseEntity
	OrderID       uuid.UUID `gorm:"type:uuid;not null;index"`
	TransactionID string    `gorm:"not null;index"`
	Method        string    `gorm:"not null"`
	Amount        int64     `gorm:"not null"` // minor units
	State         string    `gorm:"not null"`
}

// TableName overrides the gorm table name
func (Payment) TableName() string {
	return "order_payments"
}

// Order is the aggregate root owning an ordered sequence of order lines
type Order struct {
	shared.ChannelAggregateRoot
	Code             string     `gorm:"uniqueIndex;not null"`
	State            OrderState `gorm:"not null;index"`
	CurrencyCode     string     `gorm:"not null"`
	CustomerID       *uuid.UUID `gorm:"type:uuid;index"`
	Customer         *Customer  `gorm:"foreignKey:CustomerID"`
	ShippingMethodID *uuid.UUID `gorm:"type:uuid"`
	Lines            []*OrderLine `gorm:"foreignKey:OrderID"`
	Surcharges       []*Surcharge `gorm:"foreignKey:OrderID"`
	Payments         []*Payment   `gorm:"foreignKey:OrderID"`
}

// TableName overrides the gorm table name
func (Order) TableName() string {
	return "orders"
}

// NewOrder creates a new order in the AddingItems state
func NewOrder(channelToken, code, currencyCode string) (*Order, error) {
	if code == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_CODE", "Order code cannot be empty")
	}
	if currencyCode == "" {
		return nil, shared.NewDomainError("INVALID_CURRENCY", "Currency code cannot be empty")
	}

	return &Order{
		ChannelAggregateRoot: shared.NewChannelAggregateRoot(channelToken),
		Code:                 code,
		State:                StateAddingItems,
		CurrencyCode:         currencyCode,
	}, nil
}

// AddLine appends a line to the order and emits an OrderLineAddedEvent
func (o *Order) AddLine(variantID uuid.UUID, variantName string, quantity int, unitPriceWithTax int64) (*OrderLine, error) {
	if o.State != StateAddingItems {
		return nil, shared.NewDomainError("INVALID_STATE", "Cannot add lines to an order that is not in AddingItems")
	}
	if quantity <= 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if unitPriceWithTax < 0 {
		return nil, shared.NewDomainError("INVALID_PRICE", "Unit price cannot be negative")
	}

	// lines are held by pointer so the handle returned here stays valid
	// when later appends grow the slice
	line := &OrderLine{
		BaseEntity:         shared.NewBaseEntity(),
		OrderID:            o.ID,
		ProductVariantID:   variantID,
		ProductVariantName: variantName,
		Quantity:           quantity,
		UnitPriceWithTax:   unitPriceWithTax,
	}
	o.Lines = append(o.Lines, line)
	o.UpdatedAt = time.Now()

	o.AddDomainEvent(NewOrderLineAddedEvent(o, line))

	return line, nil
}

// Line returns the order line with the given ID, or nil
func (o *Order) Line(lineID uuid.UUID) *OrderLine {
	for _, l := range o.Lines {
		if l.ID == lineID {
			return l
		}
	}
	return nil
}

// TotalWithTax returns the tax-inclusive order total (lines + surcharges) in minor units
func (o *Order) TotalWithTax() int64 {
	var total int64
	for _, l := range o.Lines {
		total += l.LineTotalWithTax()
	}
	for _, s := range o.Surcharges {
		total += s.AmountWithTax
	}
	return total
}

// TotalMoney returns the order total as a Money value object
func (o *Order) TotalMoney() valueobject.Money {
	return valueobject.FromMinorUnits(o.TotalWithTax(), valueobject.Currency(o.CurrencyCode))
}

// AddSurcharge adds an order-level surcharge
func (o *Order) AddSurcharge(description string, amountWithTax int64) (*Surcharge, error) {
	if description == "" {
		return nil, shared.NewDomainError("INVALID_SURCHARGE", "Surcharge description cannot be empty")
	}
	s := &Surcharge{
		BaseEntity:    shared.NewBaseEntity(),
		OrderID:       o.ID,
		Description:   description,
		AmountWithTax: amountWithTax,
	}
	o.Surcharges = append(o.Surcharges, s)
	o.UpdatedAt = time.Now()
	return s, nil
}

// TransitionTo moves the order to the target state, enforcing the transition table
func (o *Order) TransitionTo(target OrderState) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Unknown order state: %s", target))
	}
	if !o.State.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE_TRANSITION",
			fmt.Sprintf("Cannot transition order %s from %s to %s", o.Code, o.State, target))
	}
	o.State = target
	o.UpdatedAt = time.Now()
	return nil
}

// SettlePayment records a settled payment and moves the order to PaymentSettled.
// The order must be in ArrangingPayment.
func (o *Order) SettlePayment(transactionID, method string, amount int64) (*Payment, error) {
	if transactionID == "" {
		return nil, shared.NewDomainError("INVALID_PAYMENT", "Transaction ID cannot be empty")
	}
	if o.State != StateArrangingPayment {
		return nil, shared.NewDomainError("INVALID_STATE_TRANSITION",
			fmt.Sprintf("Cannot settle payment for order %s in state %s", o.Code, o.State))
	}

	p := &Payment{
		BaseEntity:    shared.NewBaseEntity(),
		OrderID:       o.ID,
		TransactionID: transactionID,
		Method:        method,
		Amount:        amount,
		State:         "Settled",
	}
	o.Payments = append(o.Payments, p)
	o.State = StatePaymentSettled
	o.UpdatedAt = time.Now()

	return p, nil
}

// NewCorrelationHash produces a fresh random per-line marker. It forces the
// cart to treat otherwise-identical subscription lines as distinct; the value
// is advisory and carries no provider meaning.
func NewCorrelationHash() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand only fails when the OS entropy source is broken;
		// fall back to a UUID rather than returning an empty hash
		return uuid.NewString()
	}
	return hex.EncodeToString(buf)
}
