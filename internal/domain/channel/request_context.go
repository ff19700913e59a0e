package channel

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// RequestContext carries the per-request state a job handler needs to resume
// work on behalf of the original request: the sales channel, the locale and
// the acting customer. It must survive the synchronous-to-asynchronous
// boundary losslessly, since jobs may be processed by a different worker
// process than the one that enqueued them.
type RequestContext struct {
	ChannelToken  string     `json:"channel_token"`
	LanguageCode  string     `json:"language_code"`
	CustomerID    *uuid.UUID `json:"customer_id,omitempty"`
	ActiveOrderID *uuid.UUID `json:"active_order_id,omitempty"`
}

// NewRequestContext creates a request context for a channel
func NewRequestContext(channelToken, languageCode string) RequestContext {
	return RequestContext{
		ChannelToken: channelToken,
		LanguageCode: languageCode,
	}
}

// Validate checks the context carries the minimum required state
func (c RequestContext) Validate() error {
	if c.ChannelToken == "" {
		return fmt.Errorf("request context: channel token is required")
	}
	return nil
}

// Serialize encodes the context for transport across a process boundary
func (c RequestContext) Serialize() ([]byte, error) {
	return json.Marshal(c)
}

// DeserializeRequestContext decodes a context serialized with Serialize
func DeserializeRequestContext(data []byte) (RequestContext, error) {
	var c RequestContext
	if err := json.Unmarshal(data, &c); err != nil {
		return RequestContext{}, fmt.Errorf("deserialize request context: %w", err)
	}
	if err := c.Validate(); err != nil {
		return RequestContext{}, err
	}
	return c, nil
}
