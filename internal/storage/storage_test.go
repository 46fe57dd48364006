package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/maximeprn/slaybot/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test storage: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testConfig(chatID int64) *models.GroupConfig {
	return &models.GroupConfig{
		ChatID:          chatID,
		TokenAddress:    "0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
		TokenSymbol:     "ETH",
		DexName:         "Ekubo",
		TotalSupply:     1_000_000,
		MinBuyThreshold: 50,
	}
}

func TestStorage_UpsertAndGet(t *testing.T) {
	s := newTestStorage(t)
	cfg := testConfig(100)

	if err := s.UpsertGroupConfig(cfg); err != nil {
		t.Fatalf("UpsertGroupConfig: %v", err)
	}
	got, err := s.GetGroupConfig(100)
	if err != nil {
		t.Fatalf("GetGroupConfig: %v", err)
	}
	if got.TokenAddress != cfg.TokenAddress {
		t.Errorf("got address %s, want %s", got.TokenAddress, cfg.TokenAddress)
	}
	if got.TokenSymbol != "ETH" || got.DexName != "Ekubo" {
		t.Errorf("unexpected symbol/dex: %s/%s", got.TokenSymbol, got.DexName)
	}
	if got.TotalSupply != 1_000_000 || got.MinBuyThreshold != 50 {
		t.Errorf("unexpected supply/threshold: %f/%f", got.TotalSupply, got.MinBuyThreshold)
	}
	if got.Paused {
		t.Error("fresh config must not be paused")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps must be set")
	}
}

func TestStorage_Upsert_ReplacePreservesCreatedAt(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGroupConfig(testConfig(100)); err != nil {
		t.Fatalf("UpsertGroupConfig: %v", err)
	}
	first, _ := s.GetGroupConfig(100)

	replacement := testConfig(100)
	replacement.TokenSymbol = "STRK"
	replacement.MinBuyThreshold = 10
	if err := s.UpsertGroupConfig(replacement); err != nil {
		t.Fatalf("UpsertGroupConfig replace: %v", err)
	}

	got, _ := s.GetGroupConfig(100)
	if got.TokenSymbol != "STRK" || got.MinBuyThreshold != 10 {
		t.Errorf("replacement not applied: %s/%f", got.TokenSymbol, got.MinBuyThreshold)
	}
	if !got.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("created_at changed on replace: %v != %v", got.CreatedAt, first.CreatedAt)
	}
}

func TestStorage_Upsert_ClearsPaused(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGroupConfig(testConfig(100)); err != nil {
		t.Fatalf("UpsertGroupConfig: %v", err)
	}
	if err := s.SetPaused(100, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}
	if err := s.UpsertGroupConfig(testConfig(100)); err != nil {
		t.Fatalf("UpsertGroupConfig: %v", err)
	}
	got, _ := s.GetGroupConfig(100)
	if got.Paused {
		t.Error("upsert must clear the paused flag")
	}
}

func TestStorage_Upsert_Invalid(t *testing.T) {
	s := newTestStorage(t)
	cfg := testConfig(100)
	cfg.TotalSupply = 0
	err := s.UpsertGroupConfig(cfg)
	if err == nil {
		t.Fatal("expected validation error for zero supply")
	}
	if !models.IsValidation(err) {
		t.Errorf("expected ValidationError, got %v", err)
	}
	if _, err := s.GetGroupConfig(100); !errors.Is(err, models.ErrNotFound) {
		t.Error("invalid upsert must not persist anything")
	}
}

func TestStorage_Get_NotFound(t *testing.T) {
	s := newTestStorage(t)
	if _, err := s.GetGroupConfig(999); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_SetPaused_NotFound(t *testing.T) {
	s := newTestStorage(t)
	if err := s.SetPaused(999, true); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_ListActiveGroups(t *testing.T) {
	s := newTestStorage(t)
	for _, id := range []int64{1, 2, 3} {
		if err := s.UpsertGroupConfig(testConfig(id)); err != nil {
			t.Fatalf("UpsertGroupConfig(%d): %v", id, err)
		}
	}
	if err := s.SetPaused(2, true); err != nil {
		t.Fatalf("SetPaused: %v", err)
	}

	active, err := s.ListActiveGroups()
	if err != nil {
		t.Fatalf("ListActiveGroups: %v", err)
	}
	if len(active) != 2 {
		t.Fatalf("got %d active groups, want 2", len(active))
	}
	for _, g := range active {
		if g.ChatID == 2 {
			t.Error("paused group must be excluded")
		}
	}

	if err := s.SetPaused(2, false); err != nil {
		t.Fatalf("SetPaused resume: %v", err)
	}
	active, _ = s.ListActiveGroups()
	if len(active) != 3 {
		t.Errorf("got %d active groups after resume, want 3", len(active))
	}
}

func TestStorage_Watermark(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.LastSeenTx(100)
	if err != nil {
		t.Fatalf("LastSeenTx: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty watermark, got %q", got)
	}

	if err := s.MarkSeenTx(100, "0xaaa"); err != nil {
		t.Fatalf("MarkSeenTx: %v", err)
	}
	if got, _ := s.LastSeenTx(100); got != "0xaaa" {
		t.Errorf("got watermark %q, want 0xaaa", got)
	}

	// Overwrite and idempotent re-mark.
	if err := s.MarkSeenTx(100, "0xbbb"); err != nil {
		t.Fatalf("MarkSeenTx overwrite: %v", err)
	}
	if err := s.MarkSeenTx(100, "0xbbb"); err != nil {
		t.Fatalf("MarkSeenTx idempotent: %v", err)
	}
	if got, _ := s.LastSeenTx(100); got != "0xbbb" {
		t.Errorf("got watermark %q, want 0xbbb", got)
	}
}

func TestStorage_PurgeOrphanWatermarks(t *testing.T) {
	s := newTestStorage(t)
	if err := s.UpsertGroupConfig(testConfig(1)); err != nil {
		t.Fatalf("UpsertGroupConfig: %v", err)
	}
	if err := s.MarkSeenTx(1, "0xaaa"); err != nil {
		t.Fatalf("MarkSeenTx: %v", err)
	}
	if err := s.MarkSeenTx(2, "0xbbb"); err != nil {
		t.Fatalf("MarkSeenTx: %v", err)
	}

	if err := s.PurgeOrphanWatermarks(); err != nil {
		t.Fatalf("PurgeOrphanWatermarks: %v", err)
	}

	if got, _ := s.LastSeenTx(1); got != "0xaaa" {
		t.Errorf("configured group watermark lost: %q", got)
	}
	if got, _ := s.LastSeenTx(2); got != "" {
		t.Errorf("orphan watermark survived: %q", got)
	}
}

func TestStorage_Admins(t *testing.T) {
	s := newTestStorage(t)

	// No entries recorded: unknown, defer to platform.
	isAdmin, known, err := s.IsAdmin(100, 7)
	if err != nil {
		t.Fatalf("IsAdmin: %v", err)
	}
	if known || isAdmin {
		t.Error("empty admin set must report unknown")
	}

	if err := s.ReplaceAdmins(100, []int64{7, 8}); err != nil {
		t.Fatalf("ReplaceAdmins: %v", err)
	}
	if isAdmin, known, _ := s.IsAdmin(100, 7); !known || !isAdmin {
		t.Error("user 7 must be admin")
	}
	if isAdmin, known, _ := s.IsAdmin(100, 9); !known || isAdmin {
		t.Error("user 9 must not be admin")
	}

	// Replacement drops removed admins.
	if err := s.ReplaceAdmins(100, []int64{8}); err != nil {
		t.Fatalf("ReplaceAdmins: %v", err)
	}
	if isAdmin, _, _ := s.IsAdmin(100, 7); isAdmin {
		t.Error("user 7 must have been removed")
	}
}

func TestStorage_AlertRecords(t *testing.T) {
	s := newTestStorage(t)
	if n, err := s.CountAlerts(100); err != nil || n != 0 {
		t.Fatalf("CountAlerts: %d, %v", n, err)
	}
	if err := s.AddAlertRecord(100, "0xaaa", 75); err != nil {
		t.Fatalf("AddAlertRecord: %v", err)
	}
	if err := s.AddAlertRecord(100, "0xbbb", 120); err != nil {
		t.Fatalf("AddAlertRecord: %v", err)
	}
	if err := s.AddAlertRecord(200, "0xccc", 30); err != nil {
		t.Fatalf("AddAlertRecord: %v", err)
	}
	if n, _ := s.CountAlerts(100); n != 2 {
		t.Errorf("got %d alerts for chat 100, want 2", n)
	}
}

func TestStorage_SurvivesRestart(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "slaybot.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.UpsertGroupConfig(testConfig(100)); err != nil {
		t.Fatalf("UpsertGroupConfig: %v", err)
	}
	first, _ := s.GetGroupConfig(100)
	if err := s.MarkSeenTx(100, "0xdead"); err != nil {
		t.Fatalf("MarkSeenTx: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(dbPath)
	if err != nil {
		t.Fatalf("New reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.GetGroupConfig(100)
	if err != nil {
		t.Fatalf("GetGroupConfig after restart: %v", err)
	}
	if *got != *first {
		t.Errorf("config changed across restart:\n got %+v\nwant %+v", got, first)
	}
	if wm, _ := reopened.LastSeenTx(100); wm != "0xdead" {
		t.Errorf("watermark lost across restart: %q", wm)
	}
}
