package notifier

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/hivewatch/alerts/internal/models"
)

// TelegramConfig holds Telegram bot configuration.
type TelegramConfig struct {
	BotToken string
}

// Validate validates the Telegram configuration.
func (c *TelegramConfig) Validate() error {
	if c.BotToken == "" {
		return fmt.Errorf("telegram bot token is required")
	}
	return nil
}

// BotAPI is the subset of the Telegram bot client used for sending.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramSender sends alerts as Telegram bot messages.
type TelegramSender struct {
	bot BotAPI
}

// NewTelegramBot authenticates against the Bot API with token.
func NewTelegramBot(cfg TelegramConfig) (*tgbotapi.BotAPI, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid telegram config: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return bot, nil
}

// NewTelegramSender creates a sender on an existing bot client.
func NewTelegramSender(bot BotAPI) *TelegramSender {
	return &TelegramSender{bot: bot}
}

// Channel returns TELEGRAM.
func (t *TelegramSender) Channel() models.ChannelKind {
	return models.ChannelTelegram
}

// Send posts msg.Body to destination, which is either a numeric chat id or
// a username. Usernames only work once the user has started the bot.
func (t *TelegramSender) Send(ctx context.Context, destination string, msg Message) Result {
	if err := ctx.Err(); err != nil {
		return Failed(err)
	}

	destination = strings.TrimSpace(destination)
	if destination == "" {
		return Failed(fmt.Errorf("empty telegram destination"))
	}

	var cfg tgbotapi.MessageConfig
	if chatID, err := strconv.ParseInt(destination, 10, 64); err == nil {
		cfg = tgbotapi.NewMessage(chatID, msg.Body)
	} else {
		cfg = tgbotapi.NewMessageToChannel(models.NormalizeTelegramUsername(destination), msg.Body)
	}

	sent, err := t.bot.Send(cfg)
	if err != nil {
		return Failed(err)
	}
	return Sent(strconv.Itoa(sent.MessageID))
}

// Close is a no-op. Update polling on the shared bot is owned by the linker.
func (t *TelegramSender) Close() error {
	return nil
}
