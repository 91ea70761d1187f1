package arbitrage

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MahdiHaeri/Cloud-Practice-1/pkg/model"
)

func price(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func quote(exchange, asset, bid, ask string) *model.QuotedPrice {
	q := &model.QuotedPrice{Exchange: exchange, Asset: asset}
	if bid != "" {
		q.Bid = price(bid)
	}
	if ask != "" {
		q.Ask = price(ask)
	}
	return q
}

func TestCompute_SingleLeg(t *testing.T) {
	a := quote("wallex", "BTC", "985000", "990000")
	b := quote("nobitex", "BTC", "1000000", "1005000")

	opp := Compute(a, b)

	require.True(t, opp.HasOpportunity)
	require.Len(t, opp.Legs, 1)
	assert.Equal(t, "BTC/TMN", opp.Symbol)

	leg := opp.Legs[0]
	assert.Equal(t, "wallex", leg.BuyExchange)
	assert.Equal(t, "nobitex", leg.SellExchange)
	assert.True(t, leg.Profit.Equal(decimal.RequireFromString("10000")))
	// 10000/990000 = 0.0101 at four decimals, scaled by 100
	assert.True(t, leg.ProfitPercent.Equal(decimal.RequireFromString("1.01")),
		"got %s", leg.ProfitPercent)
}

func TestCompute_ReverseDirection(t *testing.T) {
	a := quote("wallex", "BTC", "1000000", "1010000")
	b := quote("nobitex", "BTC", "990000", "995000")

	opp := Compute(a, b)

	require.True(t, opp.HasOpportunity)
	require.Len(t, opp.Legs, 1)

	leg := opp.Legs[0]
	assert.Equal(t, "nobitex", leg.BuyExchange)
	assert.Equal(t, "wallex", leg.SellExchange)
	assert.True(t, leg.BuyPrice.Equal(decimal.RequireFromString("995000")))
	assert.True(t, leg.SellPrice.Equal(decimal.RequireFromString("1000000")))
	assert.True(t, leg.Profit.Equal(decimal.RequireFromString("5000")))
}

func TestCompute_NoCrossing(t *testing.T) {
	a := quote("wallex", "BTC", "995000", "1000000")
	b := quote("nobitex", "BTC", "998000", "1002000")

	opp := Compute(a, b)

	assert.False(t, opp.HasOpportunity)
	assert.Empty(t, opp.Legs)
}

func TestCompute_EqualPricesAreNotProfitable(t *testing.T) {
	a := quote("wallex", "BTC", "1000000", "1000000")
	b := quote("nobitex", "BTC", "1000000", "1000000")

	opp := Compute(a, b)

	assert.False(t, opp.HasOpportunity)
}

func TestCompute_CrossedQuotesYieldBothLegs(t *testing.T) {
	// Stale quotes can cross in both directions at once.
	a := quote("wallex", "BTC", "1020000", "990000")
	b := quote("nobitex", "BTC", "1000000", "1005000")

	opp := Compute(a, b)

	require.Len(t, opp.Legs, 2)
	assert.Equal(t, "wallex", opp.Legs[0].BuyExchange)
	assert.Equal(t, "nobitex", opp.Legs[1].BuyExchange)
}

func TestCompute_AbsentAskSuppressesLeg(t *testing.T) {
	a := quote("wallex", "BTC", "985000", "")
	b := quote("nobitex", "BTC", "1000000", "1005000")

	opp := Compute(a, b)

	// The buy-wallex leg needs wallex's ask. Only the reverse direction
	// can be checked, and it does not cross here.
	assert.False(t, opp.HasOpportunity)
}

func TestCompute_AbsentFieldsNeverTreatedAsZero(t *testing.T) {
	a := quote("wallex", "BTC", "", "")
	b := quote("nobitex", "BTC", "1000000", "1005000")

	opp := Compute(a, b)

	assert.Empty(t, opp.Legs)
}

func TestCompute_MirroredArgumentsAgree(t *testing.T) {
	a := quote("wallex", "BTC", "1000000", "1010000")
	b := quote("nobitex", "BTC", "990000", "995000")

	forward := Compute(a, b)
	mirrored := Compute(b, a)

	require.Equal(t, len(forward.Legs), len(mirrored.Legs))
	assert.ElementsMatch(t, forward.Legs, mirrored.Legs)
}

func TestCompute_PercentRoundsHalfUp(t *testing.T) {
	// 1/3 at four decimals rounds to 0.3333, scaled to 33.33%.
	a := quote("wallex", "BTC", "", "3")
	b := quote("nobitex", "BTC", "4", "")

	opp := Compute(a, b)

	require.Len(t, opp.Legs, 1)
	assert.True(t, opp.Legs[0].ProfitPercent.Equal(decimal.RequireFromString("33.33")),
		"got %s", opp.Legs[0].ProfitPercent)
}
