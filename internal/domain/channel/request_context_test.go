package channel

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_RoundTrip(t *testing.T) {
	customerID := uuid.New()
	orderID := uuid.New()
	ctx := RequestContext{
		ChannelToken:  "default-channel",
		LanguageCode:  "en",
		CustomerID:    &customerID,
		ActiveOrderID: &orderID,
	}

	data, err := ctx.Serialize()
	require.NoError(t, err)

	got, err := DeserializeRequestContext(data)
	require.NoError(t, err)
	assert.Equal(t, ctx, got)
}

func TestDeserializeRequestContext_MissingChannel(t *testing.T) {
	_, err := DeserializeRequestContext([]byte(`{"language_code":"en"}`))
	assert.Error(t, err)
}

func TestDeserializeRequestContext_Garbage(t *testing.T) {
	_, err := DeserializeRequestContext([]byte(`{not json`))
	assert.Error(t, err)
}
