package subscription

import (
	"context"
	"testing"

	"github.com/commercekit/subscriptions/internal/domain/order"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOrderLineAddedHandler_Handle(t *testing.T) {
	logger := zap.NewNop()
	ctx := context.Background()

	newOrderWithLine := func(t *testing.T, variantID uuid.UUID) (*order.Order, *order.OrderLine) {
		t.Helper()
		o, err := order.NewOrder("web-store", "ORD-1001", "USD")
		require.NoError(t, err)
		line, err := o.AddLine(variantID, "Coffee Beans 1kg", 1, 2500)
		require.NoError(t, err)
		return o, line
	}

	t.Run("subscription line gets a correlation hash", func(t *testing.T) {
		variantID := uuid.New()
		repo := newFakeOrderRepo()
		o, line := newOrderWithLine(t, variantID)
		repo.add(o)

		strategy := &fakeStrategy{subscriptionVariants: map[uuid.UUID]bool{variantID: true}}
		handler := NewOrderLineAddedHandler(repo, strategy, logger)

		err := handler.Handle(ctx, order.NewOrderLineAddedEvent(o, line))
		require.NoError(t, err)

		assert.NotEmpty(t, repo.hashes[line.ID])
		assert.Equal(t, repo.hashes[line.ID], line.SubscriptionHash)
	})

	t.Run("identical subscription lines get distinct hashes", func(t *testing.T) {
		variantID := uuid.New()
		repo := newFakeOrderRepo()
		o, err := order.NewOrder("web-store", "ORD-1002", "USD")
		require.NoError(t, err)
		first, err := o.AddLine(variantID, "Coffee Beans 1kg", 1, 2500)
		require.NoError(t, err)
		second, err := o.AddLine(variantID, "Coffee Beans 1kg", 1, 2500)
		require.NoError(t, err)
		repo.add(o)

		strategy := &fakeStrategy{subscriptionVariants: map[uuid.UUID]bool{variantID: true}}
		handler := NewOrderLineAddedHandler(repo, strategy, logger)

		require.NoError(t, handler.Handle(ctx, order.NewOrderLineAddedEvent(o, first)))
		require.NoError(t, handler.Handle(ctx, order.NewOrderLineAddedEvent(o, second)))

		assert.NotEmpty(t, first.SubscriptionHash)
		assert.NotEmpty(t, second.SubscriptionHash)
		assert.NotEqual(t, first.SubscriptionHash, second.SubscriptionHash)
	})

	t.Run("non-subscription line is left untouched", func(t *testing.T) {
		variantID := uuid.New()
		repo := newFakeOrderRepo()
		o, line := newOrderWithLine(t, variantID)
		repo.add(o)

		strategy := &fakeStrategy{subscriptionVariants: map[uuid.UUID]bool{}}
		handler := NewOrderLineAddedHandler(repo, strategy, logger)

		err := handler.Handle(ctx, order.NewOrderLineAddedEvent(o, line))
		require.NoError(t, err)

		assert.Empty(t, line.SubscriptionHash)
		assert.Empty(t, repo.hashes)
	})

	t.Run("strategy error is propagated", func(t *testing.T) {
		variantID := uuid.New()
		repo := newFakeOrderRepo()
		o, line := newOrderWithLine(t, variantID)
		repo.add(o)

		strategy := &fakeStrategy{err: assert.AnError}
		handler := NewOrderLineAddedHandler(repo, strategy, logger)

		err := handler.Handle(ctx, order.NewOrderLineAddedEvent(o, line))
		assert.Error(t, err)
	})
}

func TestOrderLineAddedHandler_EventTypes(t *testing.T) {
	handler := NewOrderLineAddedHandler(newFakeOrderRepo(), &fakeStrategy{}, zap.NewNop())
	assert.Equal(t, []string{order.EventTypeOrderLineAdded}, handler.EventTypes())
}
