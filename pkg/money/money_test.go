package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	a, err := Parse("500")
	require.NoError(t, err)
	assert.Equal(t, "500.00", a.String())

	a, err = Parse("0.005")
	require.NoError(t, err)
	assert.Equal(t, "0.01", a.String())

	_, err = Parse("not-money")
	assert.Error(t, err)
}

func TestExactBoundaryArithmetic(t *testing.T) {
	// The classic float trap: 0.1 + 0.2 must equal 0.3 exactly.
	sum := MustParse("0.10").Add(MustParse("0.20"))
	assert.Equal(t, 0, sum.Cmp(MustParse("0.30")))

	// Paying exactly the remaining balance leaves zero, not 1e-16.
	premium := MustParse("100.00")
	paid := MustParse("80.00").Add(MustParse("20.00"))
	assert.True(t, premium.Sub(paid).IsZero())

	// One cent over is strictly greater.
	assert.True(t, paid.Add(MustParse("0.01")).GreaterThan(premium))
}

func TestClampZero(t *testing.T) {
	neg := MustParse("10.00").Sub(MustParse("25.50"))
	assert.True(t, neg.IsNegative())
	assert.Equal(t, "0.00", neg.ClampZero().String())
	assert.Equal(t, "5.00", MustParse("5.00").ClampZero().String())
}

func TestJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(MustParse("1234.50"))
	require.NoError(t, err)
	assert.Equal(t, `"1234.50"`, string(out))

	var a Amount
	require.NoError(t, json.Unmarshal([]byte(`"20.01"`), &a))
	assert.Equal(t, "20.01", a.String())

	// Legacy clients send bare numbers.
	require.NoError(t, json.Unmarshal([]byte(`20.01`), &a))
	assert.Equal(t, "20.01", a.String())
}

func TestFromDecimalRounds(t *testing.T) {
	a := FromDecimal(decimal.RequireFromString("19.999"))
	assert.Equal(t, "20.00", a.String())
}

func TestScanValue(t *testing.T) {
	var a Amount
	require.NoError(t, a.Scan("77.70"))
	assert.Equal(t, "77.70", a.String())

	v, err := MustParse("0.01").Value()
	require.NoError(t, err)
	assert.Equal(t, "0.01", v)
}
