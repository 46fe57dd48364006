package monitor

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/maximeprn/slaybot/internal/models"
)

const swordLine = "🗡🗡🗡🗡🗡🗡🗡🗡"

// FormatBuyAlert renders the buy alert for one trade event.
func FormatBuyAlert(g *models.GroupConfig, ev models.TradeEvent) string {
	pct := 0.0
	if g.TotalSupply > 0 {
		pct = ev.TokenAmount / g.TotalSupply * 100
	}
	mcap := ev.MarketCapUSD
	if mcap == 0 {
		mcap = ev.PriceUSD * g.TotalSupply
	}

	var b strings.Builder
	b.WriteString(swordLine + "\n")
	b.WriteString("👊 SLAY BUY 👊\n")
	fmt.Fprintf(&b, "💸 Spent: $%s (%s %s)\n", formatUSD(ev.AmountUSD), abbrevAmount(ev.TokenAmount), g.TokenSymbol)
	fmt.Fprintf(&b, "💰 Bought: %s / %s%% of the supply\n", abbrevAmount(ev.TokenAmount), formatPercent(pct))
	fmt.Fprintf(&b, "📊 Price: $%s\n", formatPrice(ev.PriceUSD))
	fmt.Fprintf(&b, "🏦 Market Cap: $%s\n", formatUSD(mcap))
	fmt.Fprintf(&b, "💯 Total supply : %s\n", FormatSupply(g.TotalSupply))
	fmt.Fprintf(&b, "🦶 Holders : %d\n", ev.HolderCount)
	b.WriteString(swordLine)
	return b.String()
}

// formatUSD renders a dollar amount with thousands separators and a fixed
// two decimals.
func formatUSD(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// FormatSupply renders a whole token supply with thousands separators.
// Shared with the command surface so /status and alerts agree.
func FormatSupply(v float64) string {
	return humanize.FormatFloat("#,###.", v)
}

// abbrevAmount renders a token amount with a K/M/B suffix at four
// significant digits.
func abbrevAmount(v float64) string {
	switch {
	case v >= 1e9:
		return sig4(v/1e9) + "B"
	case v >= 1e6:
		return sig4(v/1e6) + "M"
	case v >= 1e3:
		return sig4(v/1e3) + "K"
	default:
		return sig4(v)
	}
}

func sig4(v float64) string {
	// 'g' at 4 significant digits switches to exponent form once the
	// value rounds to 1e4, so scaled values past that use plain digits.
	if v >= 9999.5 {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'g', 4, 64)
}

// formatPercent renders a percentage with four decimals.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// formatPrice renders a price with up to eight decimals, trailing zeros
// trimmed.
func formatPrice(v float64) string {
	s := strconv.FormatFloat(v, 'f', 8, 64)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	if s == "" || s == "-" {
		return "0"
	}
	return s
}
