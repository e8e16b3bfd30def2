// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"

	"github.com/hivewatch/alerts/internal/models"
)

// ErrNotFound is wrapped by mutations that target a missing row.
var ErrNotFound = errors.New("not found")

// FailedDeliveryBatchSize caps how many failed deliveries one query returns.
const FailedDeliveryBatchSize = 100

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open(ctx context.Context) error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate(ctx context.Context) error
	// Ping verifies the database is reachable.
	Ping(ctx context.Context) error

	// Repository accessors
	Alerts() AlertRepository
	Channels() ChannelRepository
	Deliveries() DeliveryRepository
	Rules() RuleRepository
}

// AlertRepository defines operations on alerts.
type AlertRepository interface {
	Create(ctx context.Context, alert *models.Alert) (int64, error)
	// GetByID returns nil, nil when the alert does not exist.
	GetByID(ctx context.Context, id int64) (*models.Alert, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.Alert, error)
	// MarkDelivered sets delivered and increments the attempt counter.
	MarkDelivered(ctx context.Context, id int64) error
}

// ChannelRepository defines operations on per-user channel preferences.
type ChannelRepository interface {
	List(ctx context.Context, userID int64) ([]*models.ChannelPreference, error)
	// Get returns nil, nil when the user has no preference for kind.
	Get(ctx context.Context, userID int64, kind models.ChannelKind) (*models.ChannelPreference, error)
	// Upsert inserts or replaces the (user, kind) preference and returns the stored row.
	Upsert(ctx context.Context, pref *models.ChannelPreference) (*models.ChannelPreference, error)
	Delete(ctx context.Context, userID int64, kind models.ChannelKind) (bool, error)
	// SetTelegramChatID stores chatID on every Telegram preference with the
	// given username and returns the number of rows updated.
	SetTelegramChatID(ctx context.Context, username string, chatID int64) (int64, error)
}

// DeliveryRepository defines operations on the delivery log.
type DeliveryRepository interface {
	// LogAttempt inserts the first attempt for an (alert, channel) pair.
	LogAttempt(ctx context.Context, entry *models.DeliveryLogEntry) error
	// UpdateStatus overwrites the (alert, channel) entry in place and
	// increments its retry count.
	UpdateStatus(ctx context.Context, alertID int64, kind models.ChannelKind, status models.DeliveryStatus, errMsg, externalID string) error
	// ListByAlert returns entries oldest first.
	ListByAlert(ctx context.Context, alertID int64) ([]*models.DeliveryLogEntry, error)
	// ListFailed returns up to FailedDeliveryBatchSize failed entries with
	// retry_count below maxRetries, newest first.
	ListFailed(ctx context.Context, maxRetries int) ([]*models.DeliveryLogEntry, error)
}

// RuleFilter narrows rule listings. Empty fields match everything.
type RuleFilter struct {
	HiveID     string
	MetricType string
}

// RuleRepository defines operations for alert rule management.
type RuleRepository interface {
	Create(ctx context.Context, rule *models.AlertRule) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.AlertRule, error)
	List(ctx context.Context, userID int64, filter RuleFilter) ([]*models.AlertRule, error)
	ListEnabled(ctx context.Context) ([]*models.AlertRule, error)
	// Update modifies a rule owned by rule.UserID. Wraps ErrNotFound otherwise.
	Update(ctx context.Context, rule *models.AlertRule) error
	Delete(ctx context.Context, userID, id int64) (bool, error)
}
