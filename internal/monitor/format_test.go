package monitor

import (
	"strings"
	"testing"

	"github.com/maximeprn/slaybot/internal/models"
)

func TestFormatBuyAlert(t *testing.T) {
	g := &models.GroupConfig{
		ChatID:       100,
		TokenAddress: "0xaaa",
		TokenSymbol:  "SLAY",
		DexName:      "Ekubo",
		TotalSupply:  1_000_000,
	}
	ev := models.TradeEvent{
		TxHash:       "0x2",
		AmountUSD:    75,
		TokenAmount:  1500,
		PriceUSD:     0.05,
		MarketCapUSD: 50_000,
		HolderCount:  143,
	}

	want := `🗡🗡🗡🗡🗡🗡🗡🗡
👊 SLAY BUY 👊
💸 Spent: $75.00 (1.5K SLAY)
💰 Bought: 1.5K / 0.1500% of the supply
📊 Price: $0.05
🏦 Market Cap: $50,000.00
💯 Total supply : 1,000,000
🦶 Holders : 143
🗡🗡🗡🗡🗡🗡🗡🗡`

	if got := FormatBuyAlert(g, ev); got != want {
		t.Errorf("FormatBuyAlert mismatch:\n got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatBuyAlert_MarketCapFallback(t *testing.T) {
	g := &models.GroupConfig{TokenSymbol: "SLAY", TotalSupply: 1_000_000}
	ev := models.TradeEvent{TxHash: "0x1", AmountUSD: 10, TokenAmount: 200, PriceUSD: 0.05}

	// No feed market cap: derived as price * total supply.
	got := FormatBuyAlert(g, ev)
	if want := "🏦 Market Cap: $50,000.00"; !strings.Contains(got, want) {
		t.Errorf("expected %q in:\n%s", want, got)
	}
}

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0.00"},
		{75, "75.00"},
		{1234.5, "1,234.50"},
		{1234567.89, "1,234,567.89"},
	}
	for _, tt := range tests {
		if got := formatUSD(tt.in); got != tt.want {
			t.Errorf("formatUSD(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAbbrevAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1500, "1.5K"},
		{987654, "987.7K"},
		{2_500_000, "2.5M"},
		{1_234_000_000, "1.234B"},
		{12_340_000_000, "12.34B"},
		// Never exponent form, however large the buy.
		{9_876_540_000_000, "9877B"},
		{25_000_000_000_000, "25000B"},
	}
	for _, tt := range tests {
		if got := abbrevAmount(tt.in); got != tt.want {
			t.Errorf("abbrevAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "0"},
		{0.05, "0.05"},
		{0.12345678, "0.12345678"},
		{1.5, "1.5"},
		{2, "2"},
	}
	for _, tt := range tests {
		if got := formatPrice(tt.in); got != tt.want {
			t.Errorf("formatPrice(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := formatPercent(0.15); got != "0.1500" {
		t.Errorf("formatPercent(0.15) = %q, want 0.1500", got)
	}
	if got := formatPercent(12.34567); got != "12.3457" {
		t.Errorf("formatPercent(12.34567) = %q, want 12.3457", got)
	}
}

func TestFormatSupply(t *testing.T) {
	if got := FormatSupply(1_000_000); got != "1,000,000" {
		t.Errorf("FormatSupply(1000000) = %q, want 1,000,000", got)
	}
}
