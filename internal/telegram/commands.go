package telegram

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/maximeprn/slaybot/internal/models"
	"github.com/maximeprn/slaybot/internal/monitor"
)

// configStore is the slice of the storage layer the command surface needs.
type configStore interface {
	UpsertGroupConfig(cfg *models.GroupConfig) error
	GetGroupConfig(chatID int64) (*models.GroupConfig, error)
	SetPaused(chatID int64, paused bool) error
	CountAlerts(chatID int64) (int, error)
	IsAdmin(chatID, userID int64) (isAdmin, known bool, err error)
	ReplaceAdmins(chatID int64, userIDs []int64) error
}

// platform exposes the chat platform's native admin list, consulted when no
// admin entries have been recorded for a group.
type platform interface {
	ChatAdmins(chatID int64) ([]int64, error)
}

// command is a single parsed bot command.
type command struct {
	Name    string
	Args    string
	ChatID  int64
	UserID  int64
	Private bool
}

const usageText = `❌ Usage:
/setup TOKEN_ADDRESS SYMBOL DEX SUPPLY THRESHOLD

Parameters:
• TOKEN_ADDRESS: token contract address
• SYMBOL: token symbol (e.g. ETH, USDC)
• DEX: DEX name (Ekubo, JediSwap, etc.)
• SUPPLY: total token supply
• THRESHOLD: minimum buy amount in USD (0 for all)

Example:
/setup 0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7 ETH Ekubo 1000000 50`

const startText = `🤖 Token Buy Alert Bot

I monitor token purchases and send stylized alerts to your group.

Commands:
• /setup - Configure monitoring in one command
• /status - Show current configuration
• /pause - Pause alerts
• /resume - Resume alerts
• /edit - Edit configuration

Setup format:
/setup TOKEN_ADDRESS SYMBOL DEX SUPPLY THRESHOLD`

const helpText = startText + `

Parameters:
• TOKEN_ADDRESS: token contract address
• SYMBOL: token symbol (e.g. ETH, USDC)
• DEX: DEX name (Ekubo, JediSwap, etc.)
• SUPPLY: total token supply
• THRESHOLD: minimum buy amount in USD (0 for all)

I check for purchases every few seconds and alert this group for every
buy above your configured threshold.`

const greetingText = `🎉 Thanks for adding me to your group!

Configure monitoring with:
/setup TOKEN_ADDRESS SYMBOL DEX SUPPLY THRESHOLD

Type /help to see all commands.`

const notConfiguredText = "❌ No configuration found. Use /setup to configure monitoring."

const notAdminText = "❌ Only group admins can configure the bot."

// handleCommand resolves a parsed command into a user-visible reply. Every
// error is recovered here and rendered inline; nothing propagates.
func handleCommand(store configStore, plat platform, cmd command) string {
	switch cmd.Name {
	case "start":
		return startText
	case "help":
		return helpText
	case "setup", "edit":
		return handleSetup(store, plat, cmd)
	case "status":
		return handleStatus(store, cmd.ChatID)
	case "pause":
		return handlePauseResume(store, plat, cmd, true)
	case "resume":
		return handlePauseResume(store, plat, cmd, false)
	default:
		return ""
	}
}

func handleSetup(store configStore, plat platform, cmd command) string {
	if err := authorize(store, plat, cmd); err != nil {
		return notAdminText
	}

	cfg, err := parseSetupArgs(cmd.ChatID, cmd.Args)
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			return fmt.Sprintf("❌ Error: %s\n\n%s", ve.Error(), usageText)
		}
		return usageText
	}

	if err := store.UpsertGroupConfig(cfg); err != nil {
		if models.IsValidation(err) {
			return fmt.Sprintf("❌ Error: %s\n\n%s", err.Error(), usageText)
		}
		return "❌ Error saving configuration. Please try again."
	}

	// Snapshot the platform admin list so later commands can be checked
	// without a platform round trip. Best effort.
	if !cmd.Private && plat != nil {
		if admins, err := plat.ChatAdmins(cmd.ChatID); err == nil && len(admins) > 0 {
			_ = store.ReplaceAdmins(cmd.ChatID, admins)
		}
	}

	return fmt.Sprintf(`🎉 Setup complete!

Token: %s
Address: %s
DEX: %s
Supply: %s
Min. Threshold: $%s

I'll start monitoring purchases and send alerts here! 🚀

Commands: /status /pause /resume /setup`,
		cfg.TokenSymbol,
		shortAddress(cfg.TokenAddress),
		cfg.DexName,
		formatSupply(cfg.TotalSupply),
		strconv.FormatFloat(cfg.MinBuyThreshold, 'f', -1, 64),
	)
}

func handleStatus(store configStore, chatID int64) string {
	cfg, err := store.GetGroupConfig(chatID)
	if err != nil {
		return notConfiguredText
	}

	statusIcon, statusText := "✅", "Active"
	if cfg.Paused {
		statusIcon, statusText = "⏸️", "Paused"
	}
	alertCount, err := store.CountAlerts(chatID)
	if err != nil {
		alertCount = 0
	}

	return fmt.Sprintf(`%s Bot Status: %s

Token: %s
Address: %s
DEX: %s
Total Supply: %s
Min. Threshold: $%s
Alerts sent: %d

Use /pause or /resume to control alerts.
Use /edit to modify configuration.`,
		statusIcon, statusText,
		cfg.TokenSymbol,
		shortAddress(cfg.TokenAddress),
		cfg.DexName,
		formatSupply(cfg.TotalSupply),
		strconv.FormatFloat(cfg.MinBuyThreshold, 'f', -1, 64),
		alertCount,
	)
}

func handlePauseResume(store configStore, plat platform, cmd command, pause bool) string {
	if err := authorize(store, plat, cmd); err != nil {
		return notAdminText
	}
	if err := store.SetPaused(cmd.ChatID, pause); err != nil {
		return notConfiguredText
	}
	if pause {
		return "⏸️ Alerts paused for this group."
	}
	return "▶️ Alerts resumed for this group!"
}

// authorize enforces the admin gate for configuration commands. Stored
// admin entries win; a group without entries defers to the platform's
// native admin list. Private chats always pass.
func authorize(store configStore, plat platform, cmd command) error {
	if cmd.Private {
		return nil
	}
	isAdmin, known, err := store.IsAdmin(cmd.ChatID, cmd.UserID)
	if err == nil && known {
		if isAdmin {
			return nil
		}
		return models.ErrPermissionDenied
	}
	if plat != nil {
		admins, err := plat.ChatAdmins(cmd.ChatID)
		if err == nil {
			for _, id := range admins {
				if id == cmd.UserID {
					return nil
				}
			}
		}
	}
	return models.ErrPermissionDenied
}

// parseSetupArgs parses "/setup ADDRESS SYMBOL DEX SUPPLY THRESHOLD"
// positional arguments into a GroupConfig.
func parseSetupArgs(chatID int64, args string) (*models.GroupConfig, error) {
	fields := strings.Fields(args)
	if len(fields) < 5 {
		return nil, &models.ValidationError{Field: "arguments", Reason: "expected 5 values"}
	}

	address, symbol, dex := fields[0], fields[1], fields[2]
	if !strings.HasPrefix(address, "0x") {
		return nil, &models.ValidationError{Field: "token_address", Reason: "must start with 0x"}
	}

	supply, err := strconv.ParseFloat(strings.ReplaceAll(fields[3], ",", ""), 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "supply", Reason: "must be a number"}
	}
	threshold, err := strconv.ParseFloat(fields[4], 64)
	if err != nil {
		return nil, &models.ValidationError{Field: "threshold", Reason: "must be a number"}
	}

	cfg := &models.GroupConfig{
		ChatID:          chatID,
		TokenAddress:    address,
		TokenSymbol:     strings.ToUpper(symbol),
		DexName:         titleCase(dex),
		TotalSupply:     supply,
		MinBuyThreshold: threshold,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// shortAddress abbreviates a contract address for display.
func shortAddress(addr string) string {
	if len(addr) <= 18 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-8:]
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func formatSupply(v float64) string {
	// Reuse the alert formatting so /status and alerts agree.
	return monitor.FormatSupply(v)
}
