// Package storage provides SQLite-backed persistence for group
// configurations, admin entries, dedup watermarks, and alert history.
package storage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/maximeprn/slaybot/internal/models"
	_ "modernc.org/sqlite"
)

// Storage wraps a SQLite database for all persistence operations.
type Storage struct {
	db *sql.DB
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/slaybot/data.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "slaybot", "data.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; WAL allows concurrent readers
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db}
	if err := s.createTables(); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS group_configs (
			chat_id           INTEGER PRIMARY KEY,
			token_address     TEXT NOT NULL,
			token_symbol      TEXT NOT NULL,
			dex_name          TEXT NOT NULL,
			total_supply      REAL NOT NULL,
			min_buy_threshold REAL NOT NULL DEFAULT 0,
			paused            INTEGER NOT NULL DEFAULT 0,
			created_at        INTEGER NOT NULL,
			updated_at        INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_admins (
			chat_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			PRIMARY KEY (chat_id, user_id)
		)`,
		`CREATE TABLE IF NOT EXISTS last_transactions (
			chat_id     INTEGER PRIMARY KEY,
			tx_hash     TEXT NOT NULL,
			observed_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id         TEXT PRIMARY KEY,
			chat_id    INTEGER NOT NULL,
			tx_hash    TEXT NOT NULL,
			amount_usd REAL NOT NULL,
			sent_at    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_chat_id ON alerts(chat_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// UpsertGroupConfig creates or replaces the configuration for a chat and
// clears the paused flag. created_at is preserved when replacing.
func (s *Storage) UpsertGroupConfig(cfg *models.GroupConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	now := time.Now()
	_, err := s.db.Exec(`
		INSERT INTO group_configs
			(chat_id, token_address, token_symbol, dex_name, total_supply,
			 min_buy_threshold, paused, created_at, updated_at)
		VALUES (?,?,?,?,?,?,0,?,?)
		ON CONFLICT(chat_id) DO UPDATE SET
			token_address=excluded.token_address,
			token_symbol=excluded.token_symbol,
			dex_name=excluded.dex_name,
			total_supply=excluded.total_supply,
			min_buy_threshold=excluded.min_buy_threshold,
			paused=0,
			updated_at=excluded.updated_at`,
		cfg.ChatID, cfg.TokenAddress, cfg.TokenSymbol, cfg.DexName,
		cfg.TotalSupply, cfg.MinBuyThreshold,
		now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert group config: %w", err)
	}
	return nil
}

// GetGroupConfig returns the configuration for a chat, or
// models.ErrNotFound when the chat has never been set up.
func (s *Storage) GetGroupConfig(chatID int64) (*models.GroupConfig, error) {
	row := s.db.QueryRow(`SELECT `+groupConfigCols+` FROM group_configs WHERE chat_id = ?`, chatID)
	cfg, err := scanGroupConfig(row.Scan)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group config: %w", err)
	}
	return cfg, nil
}

// SetPaused toggles alerting for a chat. Returns models.ErrNotFound when
// no configuration exists.
func (s *Storage) SetPaused(chatID int64, paused bool) error {
	res, err := s.db.Exec(`
		UPDATE group_configs SET paused = ?, updated_at = ? WHERE chat_id = ?`,
		boolToInt(paused), time.Now().UnixNano(), chatID,
	)
	if err != nil {
		return fmt.Errorf("failed to set paused: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListActiveGroups returns all unpaused configurations. The store is
// re-queried on every call so the monitor always sees fresh state.
func (s *Storage) ListActiveGroups() ([]*models.GroupConfig, error) {
	rows, err := s.db.Query(`SELECT ` + groupConfigCols + ` FROM group_configs WHERE paused = 0`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active groups: %w", err)
	}
	defer rows.Close()
	var configs []*models.GroupConfig
	for rows.Next() {
		cfg, err := scanGroupConfig(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan group config: %w", err)
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// ReplaceAdmins replaces the stored admin set for a chat.
func (s *Storage) ReplaceAdmins(chatID int64, userIDs []int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(`DELETE FROM group_admins WHERE chat_id = ?`, chatID); err != nil {
		return fmt.Errorf("failed to clear admins: %w", err)
	}
	for _, uid := range userIDs {
		if _, err := tx.Exec(`
			INSERT OR IGNORE INTO group_admins (chat_id, user_id) VALUES (?, ?)`,
			chatID, uid); err != nil {
			return fmt.Errorf("failed to insert admin: %w", err)
		}
	}
	return tx.Commit()
}

// Admins returns the stored admin user IDs for a chat. An empty result
// means no admin set was ever recorded; callers should then fall back to
// the platform's native admin list.
func (s *Storage) Admins(chatID int64) ([]int64, error) {
	rows, err := s.db.Query(`SELECT user_id FROM group_admins WHERE chat_id = ?`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query admins: %w", err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan admin: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// IsAdmin reports whether userID is in the stored admin set for chatID.
// known is false when no entries exist for the chat at all.
func (s *Storage) IsAdmin(chatID, userID int64) (isAdmin, known bool, err error) {
	ids, err := s.Admins(chatID)
	if err != nil {
		return false, false, err
	}
	if len(ids) == 0 {
		return false, false, nil
	}
	for _, id := range ids {
		if id == userID {
			return true, true, nil
		}
	}
	return false, true, nil
}

// LastSeenTx returns the dedup watermark for a chat, or "" when no
// transaction has ever been observed.
func (s *Storage) LastSeenTx(chatID int64) (string, error) {
	var txHash string
	err := s.db.QueryRow(`SELECT tx_hash FROM last_transactions WHERE chat_id = ?`, chatID).Scan(&txHash)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get watermark: %w", err)
	}
	return txHash, nil
}

// MarkSeenTx overwrites the dedup watermark for a chat. Idempotent.
func (s *Storage) MarkSeenTx(chatID int64, txHash string) error {
	_, err := s.db.Exec(`
		INSERT INTO last_transactions (chat_id, tx_hash, observed_at)
		VALUES (?,?,?)
		ON CONFLICT(chat_id) DO UPDATE SET
			tx_hash=excluded.tx_hash,
			observed_at=excluded.observed_at`,
		chatID, txHash, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to mark transaction seen: %w", err)
	}
	return nil
}

// PurgeOrphanWatermarks removes watermarks for chats that no longer have a
// configuration. Best-effort housekeeping, not required for correctness.
func (s *Storage) PurgeOrphanWatermarks() error {
	_, err := s.db.Exec(`
		DELETE FROM last_transactions WHERE chat_id NOT IN (
			SELECT chat_id FROM group_configs
		)`)
	if err != nil {
		return fmt.Errorf("failed to purge orphan watermarks: %w", err)
	}
	return nil
}

// AddAlertRecord appends an audit row for a delivered buy alert.
func (s *Storage) AddAlertRecord(chatID int64, txHash string, amountUSD float64) error {
	_, err := s.db.Exec(`
		INSERT INTO alerts (id, chat_id, tx_hash, amount_usd, sent_at)
		VALUES (?,?,?,?,?)`,
		uuid.New().String(), chatID, txHash, amountUSD, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert record: %w", err)
	}
	return nil
}

// CountAlerts returns the number of alerts ever delivered to a chat.
func (s *Storage) CountAlerts(chatID int64) (int, error) {
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM alerts WHERE chat_id = ?`, chatID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count alerts: %w", err)
	}
	return n, nil
}

const groupConfigCols = `chat_id, token_address, token_symbol, dex_name, total_supply,
	min_buy_threshold, paused, created_at, updated_at`

func scanGroupConfig(scan func(...any) error) (*models.GroupConfig, error) {
	var cfg models.GroupConfig
	var paused int
	var createdAtNano, updatedAtNano int64
	err := scan(
		&cfg.ChatID, &cfg.TokenAddress, &cfg.TokenSymbol, &cfg.DexName,
		&cfg.TotalSupply, &cfg.MinBuyThreshold, &paused,
		&createdAtNano, &updatedAtNano,
	)
	if err != nil {
		return nil, err
	}
	cfg.Paused = paused != 0
	cfg.CreatedAt = time.Unix(0, createdAtNano)
	cfg.UpdatedAt = time.Unix(0, updatedAtNano)
	return &cfg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
