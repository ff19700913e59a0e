package persistence

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/commercekit/subscriptions/internal/domain/channel"
	"github.com/commercekit/subscriptions/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestGormPaymentMethodRepository_FindEnabledByChannel(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormPaymentMethodRepository(db)
	ctx := context.Background()

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "channel_token", "code", "handler_code", "enabled", "args",
	}).AddRow(
		uuid.New(), now, now, "default-channel", "stripe", channel.StripeSubscriptionHandlerCode, true,
		`{"apiKey":"sk_test_123","webhookSecret":"whsec_456"}`,
	)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_methods" WHERE channel_token = $1 AND enabled = $2`)).
		WithArgs("default-channel", true).
		WillReturnRows(rows)

	methods, err := repo.FindEnabledByChannel(ctx, "default-channel")

	require.NoError(t, err)
	require.Len(t, methods, 1)
	assert.Equal(t, channel.StripeSubscriptionHandlerCode, methods[0].HandlerCode)
	assert.Equal(t, "sk_test_123", methods[0].Arg(channel.ArgAPIKey))
	assert.Equal(t, "whsec_456", methods[0].Arg(channel.ArgWebhookSecret))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormPaymentMethodRepository_FindEnabledByChannel_Empty(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormPaymentMethodRepository(db)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "payment_methods"`)).
		WithArgs("other-channel", true).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	methods, err := repo.FindEnabledByChannel(ctx, "other-channel")

	require.NoError(t, err)
	assert.Empty(t, methods)
}

func TestGormStripeCustomerRepository_FindByCustomer_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewGormStripeCustomerRepository(db)
	ctx := context.Background()

	customerID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "stripe_customers"`)).
		WithArgs("default-channel", customerID, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByCustomer(ctx, "default-channel", customerID)

	assert.ErrorIs(t, err, shared.ErrNotFound)
}
