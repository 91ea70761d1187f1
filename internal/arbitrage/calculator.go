// Package arbitrage computes cross-exchange spread opportunities from
// normalized quotes. Computation is pure: no I/O, no clock, no state.
package arbitrage

import (
	"github.com/shopspring/decimal"

	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

// percentScale is the kept precision of profit/buyPrice before scaling
// to a percentage.
const percentScale = 4

var hundred = decimal.NewFromInt(100)

// Leg is one directional buy-low/sell-high opportunity between two venues.
type Leg struct {
	BuyExchange   string          `json:"buyExchange"`
	SellExchange  string          `json:"sellExchange"`
	BuyPrice      decimal.Decimal `json:"buyPrice"`
	SellPrice     decimal.Decimal `json:"sellPrice"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPercent decimal.Decimal `json:"profitPercent"`
}

// Opportunity is the outcome of one spread check. Legs is empty when no
// profitable crossing exists; both directions may hold at once when quotes
// are crossed or stale.
type Opportunity struct {
	Symbol         string `json:"symbol"`
	Legs           []Leg  `json:"legs"`
	HasOpportunity bool   `json:"hasOpportunity"`
}

// Compute checks both crossing directions between two quotes for the same
// asset. A leg exists only when the sell side's bid strictly exceeds the
// buy side's ask; absent fields suppress their direction entirely.
func Compute(a, b *model.QuotedPrice) Opportunity {
	opp := Opportunity{Symbol: a.Asset + "/TMN"}

	if leg, ok := cross(a.Exchange, a.Ask, b.Exchange, b.Bid); ok {
		opp.Legs = append(opp.Legs, leg)
	}
	if leg, ok := cross(b.Exchange, b.Ask, a.Exchange, a.Bid); ok {
		opp.Legs = append(opp.Legs, leg)
	}

	opp.HasOpportunity = len(opp.Legs) > 0
	return opp
}

// cross evaluates the buy-at-ask, sell-at-bid direction. The percentage is
// profit over buy price at four decimals, half up, then scaled by 100.
func cross(buyExchange string, ask decimal.NullDecimal, sellExchange string, bid decimal.NullDecimal) (Leg, bool) {
	if !ask.Valid || !bid.Valid {
		return Leg{}, false
	}
	if bid.Decimal.LessThanOrEqual(ask.Decimal) {
		return Leg{}, false
	}

	profit := bid.Decimal.Sub(ask.Decimal)
	percent := profit.DivRound(ask.Decimal, percentScale).Mul(hundred)

	return Leg{
		BuyExchange:   buyExchange,
		SellExchange:  sellExchange,
		BuyPrice:      ask.Decimal,
		SellPrice:     bid.Decimal,
		Profit:        profit,
		ProfitPercent: percent,
	}, true
}
