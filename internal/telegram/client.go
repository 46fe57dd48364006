// Package telegram delivers buy alerts and serves the bot command surface.
package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/maximeprn/slaybot/internal/logger"
	"github.com/maximeprn/slaybot/internal/storage"
)

// Client wraps the Telegram Bot API as the bot's notifier and command
// listener.
type Client struct {
	bot            *tgbotapi.BotAPI
	store          *storage.Storage
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken string, store *storage.Storage, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		store:          store,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// Notify delivers a formatted alert to a chat with linear-backoff retry.
// Implements monitor.Notifier.
func (c *Client) Notify(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if _, err := c.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}
	return fmt.Errorf("failed after %d retries: %w", c.maxRetries, lastErr)
}

// ListenForCommands starts a goroutine that polls for Telegram updates and
// handles bot commands. It returns immediately; the goroutine stops when
// ctx is cancelled. Command handling runs independently of the monitoring
// loop and may mutate the store concurrently with a tick reading it.
func (c *Client) ListenForCommands(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := c.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				c.bot.StopReceivingUpdates()
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				if update.Message == nil {
					continue
				}
				if c.isSelfJoin(update.Message) {
					c.reply(update.Message.Chat.ID, greetingText)
					continue
				}
				if update.Message.IsCommand() {
					c.handleMessage(update.Message)
				}
			}
		}
	}()
}

func (c *Client) handleMessage(msg *tgbotapi.Message) {
	cmd := command{
		Name:    msg.Command(),
		Args:    msg.CommandArguments(),
		ChatID:  msg.Chat.ID,
		Private: msg.Chat.IsPrivate(),
	}
	if msg.From != nil {
		cmd.UserID = msg.From.ID
	}

	reply := handleCommand(c.store, c, cmd)
	if reply == "" {
		return
	}
	c.reply(cmd.ChatID, reply)
}

func (c *Client) reply(chatID int64, text string) {
	if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		logger.Warn("Failed to send reply to chat %d: %v", chatID, err)
	}
}

// ChatAdmins returns the user IDs holding creator or administrator status
// in a chat. Implements the platform admin-list capability.
func (c *Client) ChatAdmins(chatID int64) ([]int64, error) {
	members, err := c.bot.GetChatAdministrators(tgbotapi.ChatAdministratorsConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get chat administrators: %w", err)
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		if m.User != nil {
			ids = append(ids, m.User.ID)
		}
	}
	return ids, nil
}

// isSelfJoin reports whether the message announces the bot itself being
// added to a chat.
func (c *Client) isSelfJoin(msg *tgbotapi.Message) bool {
	if len(msg.NewChatMembers) == 0 {
		return false
	}
	for _, m := range msg.NewChatMembers {
		if m.ID == c.bot.Self.ID {
			return true
		}
	}
	return false
}
