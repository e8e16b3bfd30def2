package models

import (
	"strconv"
	"strings"
	"time"
)

// ChannelKind identifies a delivery medium.
type ChannelKind string

const (
	ChannelEmail    ChannelKind = "EMAIL"
	ChannelSMS      ChannelKind = "SMS"
	ChannelTelegram ChannelKind = "TELEGRAM"
)

// ChannelKinds lists every supported channel in fan-out order.
var ChannelKinds = []ChannelKind{ChannelEmail, ChannelSMS, ChannelTelegram}

// ParseChannelKind converts a case-insensitive string to a ChannelKind.
func ParseChannelKind(s string) (ChannelKind, bool) {
	switch ChannelKind(strings.ToUpper(strings.TrimSpace(s))) {
	case ChannelEmail:
		return ChannelEmail, true
	case ChannelSMS:
		return ChannelSMS, true
	case ChannelTelegram:
		return ChannelTelegram, true
	default:
		return "", false
	}
}

// Default delivery window bounds: the whole day.
const (
	DefaultTimeStart = "00:00"
	DefaultTimeEnd   = "23:59"
)

// ChannelPreference is a user's configuration for one channel. There is at
// most one preference per (UserID, Kind).
type ChannelPreference struct {
	ID               int64       `json:"id"`
	UserID           int64       `json:"user_id"`
	Kind             ChannelKind `json:"channel_type"`
	Email            string      `json:"email,omitempty"`
	PhoneNumber      string      `json:"phone_number,omitempty"`
	TelegramUsername string      `json:"telegram_username,omitempty"`
	TelegramChatID   *int64      `json:"telegram_chat_id,omitempty"`
	TimeStart        string      `json:"time_start,omitempty"`
	TimeEnd          string      `json:"time_end,omitempty"`
	Enabled          bool        `json:"enabled"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

// Window returns the allowed delivery window, applying the full-day
// defaults for unset bounds.
func (p *ChannelPreference) Window() TimeWindow {
	w := TimeWindow{Start: p.TimeStart, End: p.TimeEnd}
	if w.Start == "" {
		w.Start = DefaultTimeStart
	}
	if w.End == "" {
		w.End = DefaultTimeEnd
	}
	return w
}

// Destination returns the address the channel delivers to, or "" when the
// preference lacks the field its kind requires. Telegram deliveries go to
// the learned chat id only.
func (p *ChannelPreference) Destination() string {
	switch p.Kind {
	case ChannelEmail:
		return strings.TrimSpace(p.Email)
	case ChannelSMS:
		return strings.TrimSpace(p.PhoneNumber)
	case ChannelTelegram:
		if p.TelegramChatID == nil {
			return ""
		}
		return strconv.FormatInt(*p.TelegramChatID, 10)
	default:
		return ""
	}
}

// MissingDestinationError is the delivery log text recorded when
// Destination is empty.
func (p *ChannelPreference) MissingDestinationError() string {
	switch p.Kind {
	case ChannelEmail:
		return "No email configured"
	case ChannelSMS:
		return "No phone number configured"
	case ChannelTelegram:
		return "No Telegram chat ID configured"
	default:
		return "Unknown channel type: " + string(p.Kind)
	}
}

// NormalizeTelegramUsername returns the username with exactly one leading @.
func NormalizeTelegramUsername(username string) string {
	username = strings.TrimSpace(username)
	if username == "" {
		return ""
	}
	return "@" + strings.TrimLeft(username, "@")
}
