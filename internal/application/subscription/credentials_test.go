package subscription

import (
	"context"
	"testing"

	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialResolver_Resolve(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly one enabled stripe method returns its credentials", func(t *testing.T) {
		repo := &fakePaymentMethodRepo{methods: []channel.PaymentMethod{stripeMethod("web-store")}}
		resolver := NewCredentialResolver(repo)

		creds, err := resolver.Resolve(ctx, "web-store")
		require.NoError(t, err)
		assert.Equal(t, "sk_test_123", creds.APIKey)
		assert.Equal(t, "whsec_test_123", creds.WebhookSecret)
		assert.Equal(t, "pk_test_123", creds.PublishableKey)
	})

	t.Run("no enabled stripe method is a configuration error", func(t *testing.T) {
		repo := &fakePaymentMethodRepo{}
		resolver := NewCredentialResolver(repo)

		_, err := resolver.Resolve(ctx, "web-store")
		assert.ErrorIs(t, err, shared.ErrAmbiguousCredential)
	})

	t.Run("two enabled stripe methods is a configuration error", func(t *testing.T) {
		repo := &fakePaymentMethodRepo{methods: []channel.PaymentMethod{
			stripeMethod("web-store"),
			stripeMethod("web-store"),
		}}
		resolver := NewCredentialResolver(repo)

		_, err := resolver.Resolve(ctx, "web-store")
		assert.ErrorIs(t, err, shared.ErrAmbiguousCredential)
	})

	t.Run("other handler codes are ignored", func(t *testing.T) {
		other := stripeMethod("web-store")
		other.HandlerCode = "paypal"
		repo := &fakePaymentMethodRepo{methods: []channel.PaymentMethod{
			other,
			stripeMethod("web-store"),
		}}
		resolver := NewCredentialResolver(repo)

		creds, err := resolver.Resolve(ctx, "web-store")
		require.NoError(t, err)
		assert.Equal(t, "sk_test_123", creds.APIKey)
	})

	t.Run("missing webhook secret is an error", func(t *testing.T) {
		m := stripeMethod("web-store")
		delete(m.Args, channel.ArgWebhookSecret)
		repo := &fakePaymentMethodRepo{methods: []channel.PaymentMethod{m}}
		resolver := NewCredentialResolver(repo)

		_, err := resolver.Resolve(ctx, "web-store")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "webhook secret")
	})

	t.Run("empty channel token is rejected", func(t *testing.T) {
		resolver := NewCredentialResolver(&fakePaymentMethodRepo{})
		_, err := resolver.Resolve(ctx, "")
		require.Error(t, err)
	})
}
