package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
		valid bool
	}{
		{name: "plain integer", input: "1000000", want: "1000000", valid: true},
		{name: "fractional", input: "123.45", want: "123.45", valid: true},
		{name: "leading whitespace", input: "  42", want: "42", valid: true},
		{name: "empty is absent", input: "", valid: false},
		{name: "whitespace only is absent", input: "   ", valid: false},
		{name: "garbage is absent", input: "n/a", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parsePrice(tt.input)
			require.Equal(t, tt.valid, got.Valid)
			if tt.valid {
				assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tt.want)))
			}
		})
	}
}

func TestToToman_RialDividesByTen(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "exact division", input: "10000000", want: "1000000"},
		{name: "rounds half up", input: "15", want: "1.5"},
		{name: "two decimal places kept", input: "12345", want: "1234.5"},
		{name: "half-up at the boundary", input: "1.25", want: "0.13"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := decimal.NullDecimal{Decimal: decimal.RequireFromString(tt.input), Valid: true}
			got := toToman(in, 10)
			require.True(t, got.Valid)
			assert.True(t, got.Decimal.Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", got.Decimal, tt.want)
		})
	}
}

func TestToToman_AbsentStaysAbsent(t *testing.T) {
	got := toToman(decimal.NullDecimal{}, 10)
	assert.False(t, got.Valid)
}

func TestToToman_FactorOnePassesThrough(t *testing.T) {
	in := decimal.NullDecimal{Decimal: decimal.RequireFromString("123.456"), Valid: true}
	got := toToman(in, 1)
	require.True(t, got.Valid)
	assert.True(t, got.Decimal.Equal(in.Decimal))
}

// A Rial value scaled to Toman and multiplied back must land within the
// rounding tolerance of the kept precision.
func TestToToman_RoundTrip(t *testing.T) {
	inputs := []string{"10000000", "9990005", "123456789", "15"}
	tolerance := decimal.RequireFromString("0.05") // 0.005 Toman rounding error, times the factor

	for _, raw := range inputs {
		original := decimal.RequireFromString(raw)
		in := decimal.NullDecimal{Decimal: original, Valid: true}

		scaled := toToman(in, 10)
		require.True(t, scaled.Valid)
		recovered := scaled.Decimal.Mul(decimal.NewFromInt(10))

		diff := recovered.Sub(original).Abs()
		assert.True(t, diff.LessThanOrEqual(tolerance),
			"round trip for %s drifted by %s", raw, diff)
	}
}
