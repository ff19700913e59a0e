package subscription

import (
	"encoding/json"
	"fmt"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/google/uuid"
)

// Queue names for subscription jobs
const (
	// QueueCreateSubscriptions carries creation jobs enqueued by the webhook
	// service after a checkout payment settles. Enqueued with MaxRetries 0:
	// a failed creation must never be retried blindly, it is surfaced in the
	// order history instead.
	QueueCreateSubscriptions = "subscriptions.create"

	// QueueCancelSubscriptions carries cancellation jobs enqueued when stock
	// for a subscription line is released or cancelled
	QueueCancelSubscriptions = "subscriptions.cancel"
)

// Payload kinds used in the job envelope
const (
	payloadKindCreate = "create-subscriptions"
	payloadKindCancel = "cancel-subscriptions"
)

// Payload is the sum type of job payloads. Payloads cross the process
// boundary as JSON, so every variant must round-trip losslessly.
type Payload interface {
	payloadKind() string
}

// CreateSubscriptionsPayload instructs a worker to create the Stripe
// subscriptions for every subscription line of a settled order
type CreateSubscriptionsPayload struct {
	Ctx                   channel.RequestContext `json:"ctx"`
	OrderCode             string                 `json:"order_code"`
	StripeCustomerID      string                 `json:"stripe_customer_id"`
	StripePaymentMethodID string                 `json:"stripe_payment_method_id"`
}

func (CreateSubscriptionsPayload) payloadKind() string { return payloadKindCreate }

// CancelSubscriptionsPayload instructs a worker to cancel every Stripe
// subscription recorded on one order line
type CancelSubscriptionsPayload struct {
	Ctx         channel.RequestContext `json:"ctx"`
	OrderLineID uuid.UUID              `json:"order_line_id"`
}

func (CancelSubscriptionsPayload) payloadKind() string { return payloadKindCancel }

// envelope is the wire form of a Payload
type envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// EncodePayload wraps a payload in its JSON envelope
func EncodePayload(p Payload) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode job payload: %w", err)
	}
	return json.Marshal(envelope{Kind: p.payloadKind(), Data: data})
}

// DecodePayload unwraps a JSON envelope into its concrete payload
func DecodePayload(raw []byte) (Payload, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode job envelope: %w", err)
	}

	switch env.Kind {
	case payloadKindCreate:
		var p CreateSubscriptionsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode create payload: %w", err)
		}
		return p, nil
	case payloadKindCancel:
		var p CancelSubscriptionsPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return nil, fmt.Errorf("decode cancel payload: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("unknown job payload kind %q", env.Kind)
	}
}
