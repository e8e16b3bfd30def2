package models

import "time"

// DeliveryStatus is the outcome of the latest attempt on one channel.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
)

// DeliveryLogEntry tracks delivery of one alert over one channel. The first
// attempt inserts the entry; retries update it in place.
type DeliveryLogEntry struct {
	ID                int64          `json:"id"`
	AlertID           int64          `json:"alert_id"`
	UserID            int64          `json:"user_id"`
	Kind              ChannelKind    `json:"channel_type"`
	Status            DeliveryStatus `json:"delivery_status"`
	DeliveryTime      *time.Time     `json:"delivery_time,omitempty"` // set only when Status is sent
	ErrorMessage      string         `json:"error_message,omitempty"`
	ExternalMessageID string         `json:"external_message_id,omitempty"`
	RetryCount        int            `json:"retry_count"`
	CreatedAt         time.Time      `json:"created_at"`
}

// NewSentEntry builds a sent entry carrying the provider message id.
func NewSentEntry(alertID, userID int64, kind ChannelKind, externalID string) *DeliveryLogEntry {
	now := time.Now().UTC()
	return &DeliveryLogEntry{
		AlertID:           alertID,
		UserID:            userID,
		Kind:              kind,
		Status:            DeliverySent,
		DeliveryTime:      &now,
		ExternalMessageID: externalID,
		CreatedAt:         now,
	}
}

// NewFailedEntry builds a failed entry carrying the error text.
func NewFailedEntry(alertID, userID int64, kind ChannelKind, errMsg string) *DeliveryLogEntry {
	return &DeliveryLogEntry{
		AlertID:      alertID,
		UserID:       userID,
		Kind:         kind,
		Status:       DeliveryFailed,
		ErrorMessage: errMsg,
		CreatedAt:    time.Now().UTC(),
	}
}
