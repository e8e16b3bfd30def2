// Package telegram links Telegram chats to alert channel preferences.
//
// Bots cannot message a user before the user has written to them, and
// usernames are not a reliable address. When a user sends /start, the
// linker stores the chat id on every Telegram preference carrying that
// user's username, which is what deliveries address from then on.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hivewatch/alerts/internal/metrics"
	"github.com/hivewatch/alerts/internal/storage"
)

// Bot is the subset of the Telegram bot client the linker needs.
type Bot interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Replies sent back to the user.
const (
	replyLinked      = "You are subscribed to hive alerts. Notifications will arrive in this chat."
	replyUnknownUser = "No Telegram alert channel is configured for @%s. Add your username in the alert settings and send /start again."
	replyNoUsername  = "Please set a Telegram username first, add it in the alert settings and send /start again."
)

// Linker consumes bot updates and records chat ids.
type Linker struct {
	bot      Bot
	channels storage.ChannelRepository
	logger   *slog.Logger
	timeout  int
}

// NewLinker creates a linker. timeout is the long-poll timeout in seconds.
func NewLinker(bot Bot, channels storage.ChannelRepository, logger *slog.Logger, timeout int) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 60
	}
	return &Linker{
		bot:      bot,
		channels: channels,
		logger:   logger.With("component", "telegram"),
		timeout:  timeout,
	}
}

// Run polls for updates until ctx is cancelled.
func (l *Linker) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = l.timeout
	cfg.AllowedUpdates = []string{"message"}

	updates := l.bot.GetUpdatesChan(cfg)
	defer l.bot.StopReceivingUpdates()

	l.logger.Info("telegram linker started")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("telegram linker stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := l.HandleUpdate(ctx, update); err != nil {
				l.logger.Error("failed to handle telegram update", "update_id", update.UpdateID, "error", err)
			}
		}
	}
}

// HandleUpdate processes one update. Only /start commands are acted on.
func (l *Linker) HandleUpdate(ctx context.Context, update tgbotapi.Update) error {
	msg := update.Message
	if msg == nil || msg.Chat == nil || !msg.IsCommand() || msg.Command() != "start" {
		return nil
	}

	chatID := msg.Chat.ID
	if msg.From == nil || msg.From.UserName == "" {
		return l.reply(chatID, replyNoUsername)
	}
	username := msg.From.UserName

	n, err := l.channels.SetTelegramChatID(ctx, username, chatID)
	if err != nil {
		return fmt.Errorf("store chat id: %w", err)
	}
	if n == 0 {
		metrics.TelegramLinks.WithLabelValues("unknown").Inc()
		l.logger.InfoContext(ctx, "start from unknown telegram user", "username", username)
		return l.reply(chatID, fmt.Sprintf(replyUnknownUser, username))
	}

	metrics.TelegramLinks.WithLabelValues("linked").Inc()
	l.logger.InfoContext(ctx, "telegram chat linked", "username", username, "chat_id", chatID, "preferences", n)
	return l.reply(chatID, replyLinked)
}

func (l *Linker) reply(chatID int64, text string) error {
	if _, err := l.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}
