package exchange

import (
	"strings"

	"github.com/shopspring/decimal"
)

// tomanScale is the fractional precision kept when converting a venue's
// native unit into Toman.
const tomanScale = 2

// parsePrice converts a venue price string into an optional decimal.
// Empty or malformed values map to absent — never to zero, which would
// look valid to the spread comparison.
func parsePrice(raw string) decimal.NullDecimal {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// toToman converts a value quoted in a venue's native minor unit into
// Toman, dividing by the venue-declared unitsPerToman factor and rounding
// half-up to two fractional digits. Absent values stay absent; a factor of
// one passes the value through untouched.
func toToman(v decimal.NullDecimal, unitsPerToman int64) decimal.NullDecimal {
	if !v.Valid || unitsPerToman <= 1 {
		return v
	}
	scaled := v.Decimal.DivRound(decimal.NewFromInt(unitsPerToman), tomanScale)
	return decimal.NullDecimal{Decimal: scaled, Valid: true}
}
