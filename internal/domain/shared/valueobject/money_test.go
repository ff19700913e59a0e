package valueobject

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMoney_MinorUnits(t *testing.T) {
	m, err := NewMoneyFromFloat(19.99, USD)
	require.NoError(t, err)
	assert.Equal(t, int64(1999), m.MinorUnits())

	jpy := FromMinorUnits(500, JPY)
	assert.Equal(t, int64(500), jpy.MinorUnits())
	assert.Equal(t, "500 JPY", jpy.Format())
}

func TestMoney_FromMinorUnitsRoundTrip(t *testing.T) {
	m := FromMinorUnits(1050, USD)
	assert.Equal(t, "10.50 USD", m.Format())
	assert.Equal(t, int64(1050), m.MinorUnits())
}

func TestMoney_Add_CurrencyMismatch(t *testing.T) {
	usd := FromMinorUnits(100, USD)
	eur := FromMinorUnits(100, EUR)

	_, err := usd.Add(eur)
	assert.Error(t, err)
}

func TestMoney_Arithmetic(t *testing.T) {
	a := FromMinorUnits(1000, USD)
	b := FromMinorUnits(250, USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, int64(1250), sum.MinorUnits())

	diff, err := a.Subtract(b)
	require.NoError(t, err)
	assert.Equal(t, int64(750), diff.MinorUnits())

	tripled := b.MultiplyByInt(3)
	assert.Equal(t, int64(750), tripled.MinorUnits())
}

func TestMoney_Zero(t *testing.T) {
	z := Zero(USD)
	assert.True(t, z.IsZero())
	assert.False(t, z.IsPositive())
	assert.Equal(t, "0.00 USD", z.Format())
}

func TestMoney_Multiply_Fraction(t *testing.T) {
	m := FromMinorUnits(999, USD)
	half := m.Multiply(decimal.NewFromFloat(0.5))
	// banker's rounding on the minor-unit boundary
	assert.Equal(t, int64(500), half.MinorUnits())
}

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency(" usd ")
	require.NoError(t, err)
	assert.Equal(t, USD, c)

	_, err = ParseCurrency("x")
	assert.Error(t, err)
}
