package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityConstructors(t *testing.T) {
	assert.Equal(t, Quantity(32_500), NewQuantityFromInt(3)+Quantity(2_500))
	assert.Equal(t, Quantity(32_500), NewQuantityFromDecimal(MustMoney("3.25")))
	assert.Equal(t, Quantity(32_500), NewQuantityFromFloat64(3.25))
	assert.Equal(t, Quantity(32_500), NewQuantityFromInt64Scaled(32_500))

	// Fifth fractional digit rounds half up
	assert.Equal(t, Quantity(20_000), NewQuantityFromDecimal(MustMoney("1.99999")))
	assert.Equal(t, Quantity(1), NewQuantityFromDecimal(MustMoney("0.00005")))
	assert.Equal(t, Quantity(-2_500), NewQuantityFromDecimal(MustMoney("-0.25")))
}

func TestQuantityRepresentations(t *testing.T) {
	q := NewQuantityFromDecimal(MustMoney("3.25"))

	assert.Equal(t, int64(32_500), q.Int64Scaled())
	assert.Equal(t, 3.25, q.Float64())
	assert.True(t, q.Decimal().Equal(decimal.New(32_500, -4)))
	assert.Equal(t, "3.2500", q.String())

	// Negative values keep the sign and the zero padding
	assert.Equal(t, "-0.5000", NewQuantityFromDecimal(MustMoney("-0.5")).String())
	assert.Equal(t, "-12.0001", Quantity(-120_001).String())
	assert.Equal(t, "0.0000", Quantity(0).String())
}

func TestQuantityArithmetic(t *testing.T) {
	a := NewQuantityFromInt(5)
	b := NewQuantityFromDecimal(MustMoney("7.5"))

	assert.Equal(t, "12.5000", a.Add(b).String())
	assert.Equal(t, "-2.5000", a.Sub(b).String())
	assert.True(t, a.Sub(b).IsNegative())
	assert.True(t, b.Sub(a).IsPositive())
	assert.True(t, a.Sub(a).IsZero())
	assert.Equal(t, a.Sub(b).Neg(), b.Sub(a))
	assert.Equal(t, b.Sub(a), a.Sub(b).Abs())
}

func TestQuantityMarshalJSON(t *testing.T) {
	b, err := json.Marshal(NewQuantityFromDecimal(MustMoney("3.25")))
	require.NoError(t, err)
	// A number token, not a string
	assert.Equal(t, "3.2500", string(b))

	b, err = json.Marshal(Quantity(-5_000))
	require.NoError(t, err)
	assert.Equal(t, "-0.5000", string(b))
}

func TestQuantityUnmarshalForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Quantity
	}{
		{"number", `3.25`, 32_500},
		{"quoted string", `"3.25"`, 32_500},
		{"integer", `42`, 420_000},
		{"negative fraction only", `-0.25`, -2_500},
		{"explicit plus", `"+1.5"`, 15_000},
		{"bare fraction", `".5"`, 5_000},
		{"trailing dot", `"2."`, 20_000},
		{"short fraction pads right", `0.5`, 5_000},
		{"excess digits truncate", `"1.99999"`, 19_999},
		{"exponent falls back to float", `"1e2"`, 1_000_000},
		{"null resets", `null`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var q Quantity
			require.NoError(t, json.Unmarshal([]byte(tt.in), &q))
			assert.Equal(t, tt.want, q)
		})
	}
}

func TestQuantityUnmarshalRejectsGarbage(t *testing.T) {
	for _, in := range []string{`""`, `"abc"`, `"1.2.3"`, `"1,5"`} {
		var q Quantity
		assert.Error(t, json.Unmarshal([]byte(in), &q), "input %s", in)
	}
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	orig := NewQuantityFromDecimal(MustMoney("-12.0001"))

	b, err := json.Marshal(orig)
	require.NoError(t, err)

	var back Quantity
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, orig, back)
}

func TestMinorUnitsConversions(t *testing.T) {
	assert.Equal(t, MinorUnits(1850), MinorUnitsFromMoney(MustMoney("18.50"), 2))
	// Half a minor unit rounds away from zero
	assert.Equal(t, MinorUnits(1851), MinorUnitsFromMoney(MustMoney("18.505"), 2))
	assert.Equal(t, MinorUnits(-1851), MinorUnitsFromMoney(MustMoney("-18.505"), 2))
	assert.Equal(t, MinorUnits(1235), NewMinorUnitsFromMajor(12.345, 2))

	m := MinorUnits(1850)
	assert.True(t, m.Money(2).Equal(MustMoney("18.50")))
	assert.Equal(t, 18.50, m.ToMajor(2))

	assert.True(t, MinorUnits(0).IsZero())
	assert.True(t, m.IsPositive())
	assert.True(t, m.Neg().IsNegative())
	assert.Equal(t, m, m.Neg().Abs())
}
