// Package models defines the core domain entities: group configurations,
// trade events, and alert records.
package models

import (
	"time"
)

// GroupConfig holds the monitoring configuration for a single chat group.
// One config per chat; never hard-deleted, pausing is the soft-off switch.
type GroupConfig struct {
	ChatID          int64     `json:"chat_id"`
	TokenAddress    string    `json:"token_address"`
	TokenSymbol     string    `json:"token_symbol"`
	DexName         string    `json:"dex_name"`
	TotalSupply     float64   `json:"total_supply"`
	MinBuyThreshold float64   `json:"min_buy_threshold"`
	Paused          bool      `json:"paused"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Validate checks group config field constraints.
func (c *GroupConfig) Validate() error {
	if c.ChatID == 0 {
		return &ValidationError{Field: "chat_id", Reason: "must not be zero"}
	}
	if c.TokenAddress == "" {
		return &ValidationError{Field: "token_address", Reason: "must not be empty"}
	}
	if c.TokenSymbol == "" {
		return &ValidationError{Field: "symbol", Reason: "must not be empty"}
	}
	if len(c.TokenSymbol) > 10 {
		return &ValidationError{Field: "symbol", Reason: "must be at most 10 characters"}
	}
	if c.DexName == "" {
		return &ValidationError{Field: "dex", Reason: "must not be empty"}
	}
	if c.TotalSupply <= 0 {
		return &ValidationError{Field: "supply", Reason: "must be greater than 0"}
	}
	if c.MinBuyThreshold < 0 {
		return &ValidationError{Field: "threshold", Reason: "must be 0 or higher"}
	}
	return nil
}

// AdminEntry records a user authorized to run configuration commands
// for a group. An empty set for a group means the platform's native
// admin list is authoritative.
type AdminEntry struct {
	ChatID int64
	UserID int64
}

// TradeEvent is a single purchase reported by the trade feed.
// Transient; never persisted.
type TradeEvent struct {
	TxHash       string
	AmountUSD    float64
	TokenAmount  float64
	PriceUSD     float64
	MarketCapUSD float64
	HolderCount  int
}

// AlertRecord is an audit row written after a buy alert is delivered.
type AlertRecord struct {
	ID        string
	ChatID    int64
	TxHash    string
	AmountUSD float64
	SentAt    time.Time
}
