// Package monitor drives the poll-dedupe-filter-notify cycle.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jpillora/backoff"
	"github.com/maximeprn/slaybot/internal/feed"
	"github.com/maximeprn/slaybot/internal/logger"
	"github.com/maximeprn/slaybot/internal/models"
)

// Store is the slice of the storage layer the monitoring loop needs.
type Store interface {
	ListActiveGroups() ([]*models.GroupConfig, error)
	LastSeenTx(chatID int64) (string, error)
	MarkSeenTx(chatID int64, txHash string) error
	AddAlertRecord(chatID int64, txHash string, amountUSD float64) error
	PurgeOrphanWatermarks() error
}

// TradeFetcher is the upstream trade feed capability.
type TradeFetcher interface {
	FetchRecentTrades(ctx context.Context, tokenAddress, dexName string) ([]models.TradeEvent, error)
}

// Notifier delivers a formatted message to a chat destination.
type Notifier interface {
	Notify(chatID int64, text string) error
}

// Config holds monitoring loop behavior.
type Config struct {
	Interval   time.Duration
	Workers    int
	BackoffMin time.Duration
	BackoffMax time.Duration
}

// DefaultConfig returns the monitoring defaults.
func DefaultConfig() Config {
	return Config{
		Interval:   15 * time.Second,
		Workers:    4,
		BackoffMin: 15 * time.Second,
		BackoffMax: 5 * time.Minute,
	}
}

// TickStats summarizes one monitoring tick.
type TickStats struct {
	Groups       int
	FeedFailures int
	Alerts       int
}

// Monitor runs the periodic monitoring loop over all active groups.
type Monitor struct {
	store    Store
	feed     TradeFetcher
	notifier Notifier
	config   Config
}

// New creates a monitor over the given store, trade feed, and notifier.
func New(store Store, fetcher TradeFetcher, notifier Notifier, config Config) *Monitor {
	if config.Workers < 1 {
		config.Workers = 1
	}
	return &Monitor{
		store:    store,
		feed:     fetcher,
		notifier: notifier,
		config:   config,
	}
}

// Run executes ticks until ctx is cancelled. Ticks never overlap: the next
// tick is scheduled only after the current one finishes. When every feed
// call in a tick failed as unavailable, the next tick is delayed with
// exponential backoff instead of the fixed interval.
//
// Returns a non-nil error only on unrecoverable persistence failures,
// which halt the loop.
func (m *Monitor) Run(ctx context.Context) error {
	b := &backoff.Backoff{
		Min:    m.config.BackoffMin,
		Max:    m.config.BackoffMax,
		Factor: 2,
	}

	for {
		start := time.Now()
		stats, err := m.RunTick(ctx)
		if err != nil {
			return fmt.Errorf("monitoring tick failed: %w", err)
		}
		logger.Info("Tick completed in %v: %d groups, %d alerts, %d feed failures",
			time.Since(start), stats.Groups, stats.Alerts, stats.FeedFailures)

		if err := m.store.PurgeOrphanWatermarks(); err != nil {
			logger.Warn("Failed to purge orphan watermarks: %v", err)
		}

		delay := m.config.Interval
		if stats.Groups > 0 && stats.FeedFailures == stats.Groups {
			delay = b.Duration()
			logger.Warn("Trade feed down for all %d groups, backing off %v", stats.Groups, delay)
		} else {
			b.Reset()
		}

		select {
		case <-ctx.Done():
			logger.Info("Monitoring loop stopped")
			return nil
		case <-time.After(delay):
		}
	}
}

// RunTick processes every active group once. Per-group failures are logged
// and isolated; only store-level failures abort the tick.
func (m *Monitor) RunTick(ctx context.Context) (TickStats, error) {
	groups, err := m.store.ListActiveGroups()
	if err != nil {
		return TickStats{}, fmt.Errorf("failed to list active groups: %w", err)
	}
	if len(groups) == 0 {
		logger.Debug("No active groups configured")
		return TickStats{}, nil
	}

	var (
		wg           sync.WaitGroup
		sem          = make(chan struct{}, m.config.Workers)
		feedFailures atomic.Int32
		alerts       atomic.Int32
		processed    int

		errMu    sync.Mutex
		storeErr error
	)

	for _, group := range groups {
		// On shutdown, let in-flight groups finish but launch no more.
		if ctx.Err() != nil {
			break
		}
		processed++
		wg.Add(1)
		sem <- struct{}{}
		go func(g *models.GroupConfig) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("Panic while processing chat %d: %v", g.ChatID, r)
				}
			}()
			sent, feedDown, err := m.processGroup(ctx, g)
			alerts.Add(int32(sent))
			if feedDown {
				feedFailures.Add(1)
			}
			if err != nil {
				errMu.Lock()
				if storeErr == nil {
					storeErr = err
				}
				errMu.Unlock()
			}
		}(group)
	}
	wg.Wait()

	stats := TickStats{
		Groups:       processed,
		FeedFailures: int(feedFailures.Load()),
		Alerts:       int(alerts.Load()),
	}
	// Persistence failures are unrecoverable: a stale watermark would
	// re-alert the same transactions next tick.
	if storeErr != nil {
		return stats, storeErr
	}
	return stats, nil
}

// processGroup runs the fetch-dedupe-filter-notify pipeline for one group.
// Returns the number of alerts sent, whether the feed call failed, and any
// store error. Store errors are fatal to the tick: continuing with a stale
// watermark would re-alert the same transactions.
func (m *Monitor) processGroup(ctx context.Context, g *models.GroupConfig) (sent int, feedDown bool, err error) {
	trades, err := m.feed.FetchRecentTrades(ctx, g.TokenAddress, g.DexName)
	if err != nil {
		// ErrUnavailable and ErrMalformed alike: data is delayed, not
		// lost. Skip this tick, retry next with the watermark intact.
		if errors.Is(err, feed.ErrMalformed) {
			logger.Warn("Feed returned malformed data for chat %d (%s): %v", g.ChatID, g.TokenSymbol, err)
		} else {
			logger.Warn("Feed unavailable for chat %d (%s): %v", g.ChatID, g.TokenSymbol, err)
		}
		return 0, true, nil
	}
	if len(trades) == 0 {
		logger.Debug("No recent trades for chat %d (%s)", g.ChatID, g.TokenSymbol)
		return 0, false, nil
	}

	watermark, err := m.store.LastSeenTx(g.ChatID)
	if err != nil {
		return 0, false, fmt.Errorf("chat %d: failed to read watermark: %w", g.ChatID, err)
	}

	fresh := selectNewer(trades, watermark)

	// Oldest first, so a burst of buys arrives in chronological order.
	for i := len(fresh) - 1; i >= 0; i-- {
		ev := fresh[i]
		if ev.AmountUSD < g.MinBuyThreshold {
			logger.Debug("Buy $%.2f below threshold $%.2f for chat %d, skipping",
				ev.AmountUSD, g.MinBuyThreshold, g.ChatID)
			continue
		}
		text := FormatBuyAlert(g, ev)
		if err := m.notifier.Notify(g.ChatID, text); err != nil {
			// Watermark still advances below; a delivery outage must not
			// turn into an alert storm on recovery.
			logger.Error("Failed to deliver alert to chat %d: %v", g.ChatID, err)
			continue
		}
		sent++
		if err := m.store.AddAlertRecord(g.ChatID, ev.TxHash, ev.AmountUSD); err != nil {
			logger.Warn("Failed to record alert for chat %d: %v", g.ChatID, err)
		}
	}

	// Advance past everything seen this tick, alerted or filtered, so
	// below-threshold trades are never re-evaluated.
	newest := trades[0].TxHash
	if newest != watermark {
		if err := m.store.MarkSeenTx(g.ChatID, newest); err != nil {
			return sent, false, fmt.Errorf("chat %d: failed to advance watermark: %w", g.ChatID, err)
		}
	}

	return sent, false, nil
}

// selectNewer returns the trades strictly newer than the watermark. The
// feed's newest-first ordering is authoritative: "newer" means positioned
// before the watermark in the list. An empty watermark, or a watermark that
// has already scrolled out of the fetch window, selects everything.
func selectNewer(trades []models.TradeEvent, watermark string) []models.TradeEvent {
	if watermark == "" {
		return trades
	}
	for i, t := range trades {
		if t.TxHash == watermark {
			return trades[:i]
		}
	}
	return trades
}
