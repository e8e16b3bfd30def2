package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hivewatch/alerts/internal/models"
)

type sqlAlertRepo struct {
	db *sql.DB
	d  dialect
}

const alertColumns = `id, user_id, text, hive_id, metric_type, metric_value, alert_rule_id,
	delivered, delivery_attempts, date_added`

func (r *sqlAlertRepo) Create(ctx context.Context, alert *models.Alert) (int64, error) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alerts (user_id, text, hive_id, metric_type, metric_value, alert_rule_id,
			delivered, delivery_attempts, date_added)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, r.d.rebind(query),
		alert.UserID, alert.Text, nullString(alert.HiveID), nullString(alert.MetricType),
		nullFloat(alert.MetricValue), nullInt(alert.RuleID),
		alert.Delivered, alert.DeliveryAttempts, alert.CreatedAt.UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert alert: %w", err)
	}
	alert.ID = id
	return id, nil
}

func (r *sqlAlertRepo) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = ?`
	alert, err := scanAlert(r.db.QueryRowContext(ctx, r.d.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return alert, err
}

func (r *sqlAlertRepo) ListByUser(ctx context.Context, userID int64) ([]*models.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE user_id = ? ORDER BY date_added DESC, id DESC`
	rows, err := r.db.QueryContext(ctx, r.d.rebind(query), userID)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

func (r *sqlAlertRepo) MarkDelivered(ctx context.Context, id int64) error {
	query := `UPDATE alerts SET delivered = ?, delivery_attempts = delivery_attempts + 1 WHERE id = ?`
	result, err := r.db.ExecContext(ctx, r.d.rebind(query), true, id)
	if err != nil {
		return fmt.Errorf("mark alert delivered: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanAlert(row scanner) (*models.Alert, error) {
	alert := &models.Alert{}
	var hiveID, metricType sql.NullString
	var metricValue sql.NullFloat64
	var ruleID sql.NullInt64

	err := row.Scan(
		&alert.ID, &alert.UserID, &alert.Text, &hiveID, &metricType, &metricValue, &ruleID,
		&alert.Delivered, &alert.DeliveryAttempts, &alert.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.HiveID = hiveID.String
	alert.MetricType = metricType.String
	if metricValue.Valid {
		v := metricValue.Float64
		alert.MetricValue = &v
	}
	if ruleID.Valid {
		v := ruleID.Int64
		alert.RuleID = &v
	}
	return alert, nil
}
