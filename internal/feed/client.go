// Package feed fetches recent trade data for a token from the upstream
// indexing API.
package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/maximeprn/slaybot/internal/models"
)

// ErrUnavailable signals a transport-level failure (network error, timeout,
// upstream 5xx). Trade data is delayed, not lost; callers retry next tick.
var ErrUnavailable = errors.New("trade feed unavailable")

// ErrMalformed signals an unexpected response shape from the upstream API.
// Treated the same as ErrUnavailable by the monitoring loop.
var ErrMalformed = errors.New("trade feed returned malformed response")

// Client provides access to the trade feed API.
// Each call performs exactly one attempt; retry and backoff policy belongs
// to the monitoring loop so all groups back off uniformly.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// feedTrade is a single trade row as returned by the upstream API.
type feedTrade struct {
	TxHash       string  `json:"txnHash"`
	Type         string  `json:"type"`
	AmountUSD    float64 `json:"amountUsd"`
	TokenAmount  float64 `json:"tokenAmount"`
	PriceUSD     float64 `json:"priceUsd"`
	MarketCapUSD float64 `json:"marketCapUsd"`
	Holders      int     `json:"holders"`
}

// feedResponse wraps the trade list. Trades are ordered newest first.
type feedResponse struct {
	Trades *[]feedTrade `json:"trades"`
}

// NewClient creates a new trade feed client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// FetchRecentTrades returns recent buy trades for a token on a DEX, newest
// first, in the order the upstream reports them. That ordering is
// authoritative for deduplication.
func (c *Client) FetchRecentTrades(ctx context.Context, tokenAddress, dexName string) ([]models.TradeEvent, error) {
	u := fmt.Sprintf("%s/trades/%s/%s",
		c.baseURL,
		url.PathEscape(strings.ToLower(dexName)),
		url.PathEscape(CleanAddress(tokenAddress)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		// Unknown token or no trade history yet.
		return nil, nil
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: server error %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: unexpected status %d", ErrMalformed, resp.StatusCode)
	}

	var fr feedResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if fr.Trades == nil {
		return nil, fmt.Errorf("%w: missing trades field", ErrMalformed)
	}

	var events []models.TradeEvent
	for _, t := range *fr.Trades {
		if t.Type != "" && t.Type != "buy" {
			continue
		}
		if t.TxHash == "" {
			return nil, fmt.Errorf("%w: trade without transaction hash", ErrMalformed)
		}
		events = append(events, models.TradeEvent{
			TxHash:       t.TxHash,
			AmountUSD:    t.AmountUSD,
			TokenAmount:  t.TokenAmount,
			PriceUSD:     t.PriceUSD,
			MarketCapUSD: t.MarketCapUSD,
			HolderCount:  t.Holders,
		})
	}
	return events, nil
}

// CleanAddress strips any suffix after the first dash. Some launchpads
// append pool metadata to the address users paste into /setup.
func CleanAddress(addr string) string {
	if i := strings.IndexByte(addr, '-'); i >= 0 {
		return addr[:i]
	}
	return addr
}
