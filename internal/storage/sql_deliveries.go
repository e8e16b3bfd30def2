package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hivewatch/alerts/internal/models"
)

type sqlDeliveryRepo struct {
	db *sql.DB
	d  dialect
}

const deliveryColumns = `id, alert_id, user_id, channel_type, delivery_status, delivery_time,
	error_message, external_message_id, retry_count, created_at`

func (r *sqlDeliveryRepo) LogAttempt(ctx context.Context, entry *models.DeliveryLogEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	var deliveryTime *time.Time
	if entry.Status == models.DeliverySent {
		deliveryTime = entry.DeliveryTime
		if deliveryTime == nil {
			now := time.Now().UTC()
			deliveryTime = &now
		}
	}

	query := `
		INSERT INTO alert_delivery_log (alert_id, user_id, channel_type, delivery_status,
			delivery_time, error_message, external_message_id, retry_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, r.d.rebind(query),
		entry.AlertID, entry.UserID, string(entry.Kind), string(entry.Status),
		nullTime(deliveryTime), nullString(entry.ErrorMessage), nullString(entry.ExternalMessageID),
		entry.RetryCount, entry.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("insert delivery log: %w", err)
	}
	entry.ID = id
	entry.DeliveryTime = deliveryTime
	return nil
}

// UpdateStatus bumps retry_count whatever the new status is. A successful
// retry clears the previous error text; a failed one clears the delivery time.
func (r *sqlDeliveryRepo) UpdateStatus(ctx context.Context, alertID int64, kind models.ChannelKind, status models.DeliveryStatus, errMsg, externalID string) error {
	var deliveryTime sql.NullTime
	if status == models.DeliverySent {
		deliveryTime = sql.NullTime{Time: time.Now().UTC(), Valid: true}
	}

	query := `
		UPDATE alert_delivery_log SET
			delivery_status = ?,
			delivery_time = ?,
			error_message = ?,
			external_message_id = ?,
			retry_count = retry_count + 1
		WHERE alert_id = ? AND channel_type = ?
	`
	result, err := r.db.ExecContext(ctx, r.d.rebind(query),
		string(status), deliveryTime, nullString(errMsg), nullString(externalID),
		alertID, string(kind),
	)
	if err != nil {
		return fmt.Errorf("update delivery status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("delivery log %d/%s: %w", alertID, kind, ErrNotFound)
	}
	return nil
}

func (r *sqlDeliveryRepo) ListByAlert(ctx context.Context, alertID int64) ([]*models.DeliveryLogEntry, error) {
	query := `SELECT ` + deliveryColumns + ` FROM alert_delivery_log WHERE alert_id = ? ORDER BY created_at ASC, id ASC`
	return r.query(ctx, query, alertID)
}

func (r *sqlDeliveryRepo) ListFailed(ctx context.Context, maxRetries int) ([]*models.DeliveryLogEntry, error) {
	query := `
		SELECT ` + deliveryColumns + ` FROM alert_delivery_log
		WHERE delivery_status = ? AND retry_count < ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`
	return r.query(ctx, query, string(models.DeliveryFailed), maxRetries, FailedDeliveryBatchSize)
}

func (r *sqlDeliveryRepo) query(ctx context.Context, query string, args ...any) ([]*models.DeliveryLogEntry, error) {
	rows, err := r.db.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query delivery log: %w", err)
	}
	defer rows.Close()

	var entries []*models.DeliveryLogEntry
	for rows.Next() {
		entry, err := scanDelivery(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanDelivery(row scanner) (*models.DeliveryLogEntry, error) {
	entry := &models.DeliveryLogEntry{}
	var kind, status string
	var deliveryTime sql.NullTime
	var errMsg, externalID sql.NullString

	err := row.Scan(
		&entry.ID, &entry.AlertID, &entry.UserID, &kind, &status, &deliveryTime,
		&errMsg, &externalID, &entry.RetryCount, &entry.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan delivery log: %w", err)
	}

	entry.Kind = models.ChannelKind(kind)
	entry.Status = models.DeliveryStatus(status)
	if deliveryTime.Valid {
		t := deliveryTime.Time
		entry.DeliveryTime = &t
	}
	entry.ErrorMessage = errMsg.String
	entry.ExternalMessageID = externalID.String
	return entry, nil
}
