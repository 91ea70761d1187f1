package alert

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MahdiHaeri/Cloud-Practice-1/internal/arbitrage"
)

// FormatMessage renders one Markdown alert covering every leg of the
// opportunity.
func FormatMessage(opp arbitrage.Opportunity, at time.Time) string {
	var sb strings.Builder
	sb.WriteString("🚨 *ARBITRAGE OPPORTUNITY DETECTED!* 🚨\n\n")
	fmt.Fprintf(&sb, "💰 *Market:* %s\n", opp.Symbol)
	fmt.Fprintf(&sb, "⏰ *Time:* %s\n\n", at.Format("15:04:05"))

	for _, leg := range opp.Legs {
		sb.WriteString("📈 *Strategy:*\n")
		fmt.Fprintf(&sb, "   🟢 Buy from: *%s*\n", leg.BuyExchange)
		fmt.Fprintf(&sb, "   💵 Buy Price: `%s TMN`\n\n", formatAmount(leg.BuyPrice))
		fmt.Fprintf(&sb, "   🔴 Sell on: *%s*\n", leg.SellExchange)
		fmt.Fprintf(&sb, "   💵 Sell Price: `%s TMN`\n\n", formatAmount(leg.SellPrice))
		fmt.Fprintf(&sb, "   ✨ *Profit: %s TMN*\n", formatAmount(leg.Profit))
		fmt.Fprintf(&sb, "   📊 *Profit %%: %s%%*\n\n", leg.ProfitPercent.StringFixed(4))
	}

	sb.WriteString("⚠️ _Note: Execute trades quickly as opportunities may disappear fast!_\n")
	return sb.String()
}

// formatAmount renders a monetary value with thousands separators and
// two fractional digits.
func formatAmount(v decimal.Decimal) string {
	fixed := v.StringFixed(2)

	neg := strings.HasPrefix(fixed, "-")
	if neg {
		fixed = fixed[1:]
	}

	intPart, fracPart, _ := strings.Cut(fixed, ".")

	var sb strings.Builder
	if neg {
		sb.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(r)
	}
	sb.WriteByte('.')
	sb.WriteString(fracPart)
	return sb.String()
}
