package subscription

import (
	"context"
	"fmt"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/shared"
)

// StripeCredentials are the per-channel Stripe secrets resolved from the
// channel's enabled payment method
type StripeCredentials struct {
	APIKey         string
	WebhookSecret  string
	PublishableKey string
}

// CredentialResolver resolves Stripe credentials for a sales channel
type CredentialResolver struct {
	methods channel.PaymentMethodRepository
}

// NewCredentialResolver creates a new credential resolver
func NewCredentialResolver(methods channel.PaymentMethodRepository) *CredentialResolver {
	return &CredentialResolver{methods: methods}
}

// Resolve loads the channel's enabled payment methods and returns the
// credentials of the single Stripe subscription method. Zero or more than
// one matching method is a configuration error the caller must surface.
func (r *CredentialResolver) Resolve(ctx context.Context, channelToken string) (StripeCredentials, error) {
	if channelToken == "" {
		return StripeCredentials{}, shared.NewDomainError("INVALID_CHANNEL", "Channel token cannot be empty")
	}

	enabled, err := r.methods.FindEnabledByChannel(ctx, channelToken)
	if err != nil {
		return StripeCredentials{}, fmt.Errorf("load payment methods for channel %s: %w", channelToken, err)
	}

	var matches []channel.PaymentMethod
	for _, m := range enabled {
		if m.HandlerCode == channel.StripeSubscriptionHandlerCode {
			matches = append(matches, m)
		}
	}
	if len(matches) != 1 {
		return StripeCredentials{}, shared.ErrAmbiguousCredential
	}

	method := matches[0]
	creds := StripeCredentials{
		APIKey:         method.Arg(channel.ArgAPIKey),
		WebhookSecret:  method.Arg(channel.ArgWebhookSecret),
		PublishableKey: method.Arg(channel.ArgPublishableKey),
	}
	if creds.APIKey == "" {
		return StripeCredentials{}, fmt.Errorf("payment method %s for channel %s has no API key configured", method.Code, channelToken)
	}
	if creds.WebhookSecret == "" {
		return StripeCredentials{}, fmt.Errorf("payment method %s for channel %s has no webhook secret configured", method.Code, channelToken)
	}

	return creds, nil
}
