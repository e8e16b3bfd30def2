package logging

import (
	"log/slog"

	"github.com/hivewatch/alerts/internal/models"
)

// Error records err under "error". Nil errors yield an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

func AlertID(id int64) slog.Attr {
	return slog.Int64("alert_id", id)
}

func Channel(kind models.ChannelKind) slog.Attr {
	return slog.String("channel", string(kind))
}

func RetryCount(n int) slog.Attr {
	return slog.Int("retry_count", n)
}

// ExternalID records a provider message id. Empty ids yield an empty Attr.
func ExternalID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("external_id", id)
}
