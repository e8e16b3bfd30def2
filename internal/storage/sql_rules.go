package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hivewatch/alerts/internal/models"
)

type sqlRuleRepo struct {
	db *sql.DB
	d  dialect
}

const ruleColumns = `id, user_id, hive_id, metric_type, condition_type, threshold_value,
	duration_minutes, enabled, created_at, updated_at`

func (r *sqlRuleRepo) Create(ctx context.Context, rule *models.AlertRule) (int64, error) {
	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}
	rule.UpdatedAt = now

	query := `
		INSERT INTO alert_rules (user_id, hive_id, metric_type, condition_type, threshold_value,
			duration_minutes, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowContext(ctx, r.d.rebind(query),
		rule.UserID, rule.HiveID, rule.MetricType, string(rule.Condition), rule.Threshold,
		rule.DurationMinutes, rule.Enabled, rule.CreatedAt.UTC(), rule.UpdatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert alert rule: %w", err)
	}
	rule.ID = id
	return id, nil
}

func (r *sqlRuleRepo) GetByID(ctx context.Context, id int64) (*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE id = ?`
	rule, err := scanRule(r.db.QueryRowContext(ctx, r.d.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rule, err
}

func (r *sqlRuleRepo) List(ctx context.Context, userID int64, filter RuleFilter) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE user_id = ?`
	args := []any{userID}
	if filter.HiveID != "" {
		query += ` AND hive_id = ?`
		args = append(args, filter.HiveID)
	}
	if filter.MetricType != "" {
		query += ` AND metric_type = ?`
		args = append(args, filter.MetricType)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return r.query(ctx, query, args...)
}

func (r *sqlRuleRepo) ListEnabled(ctx context.Context) ([]*models.AlertRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM alert_rules WHERE enabled = ? ORDER BY user_id, id`
	return r.query(ctx, query, true)
}

func (r *sqlRuleRepo) Update(ctx context.Context, rule *models.AlertRule) error {
	rule.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE alert_rules SET hive_id = ?, metric_type = ?, condition_type = ?,
			threshold_value = ?, duration_minutes = ?, enabled = ?, updated_at = ?
		WHERE id = ? AND user_id = ?
	`
	result, err := r.db.ExecContext(ctx, r.d.rebind(query),
		rule.HiveID, rule.MetricType, string(rule.Condition), rule.Threshold,
		rule.DurationMinutes, rule.Enabled, rule.UpdatedAt,
		rule.ID, rule.UserID,
	)
	if err != nil {
		return fmt.Errorf("update alert rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("alert rule %d: %w", rule.ID, ErrNotFound)
	}
	return nil
}

func (r *sqlRuleRepo) Delete(ctx context.Context, userID, id int64) (bool, error) {
	query := `DELETE FROM alert_rules WHERE id = ? AND user_id = ?`
	result, err := r.db.ExecContext(ctx, r.d.rebind(query), id, userID)
	if err != nil {
		return false, fmt.Errorf("delete alert rule: %w", err)
	}
	rows, _ := result.RowsAffected()
	return rows > 0, nil
}

func (r *sqlRuleRepo) query(ctx context.Context, query string, args ...any) ([]*models.AlertRule, error) {
	rows, err := r.db.QueryContext(ctx, r.d.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query alert rules: %w", err)
	}
	defer rows.Close()

	var rules []*models.AlertRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func scanRule(row scanner) (*models.AlertRule, error) {
	rule := &models.AlertRule{}
	var condition string

	err := row.Scan(
		&rule.ID, &rule.UserID, &rule.HiveID, &rule.MetricType, &condition, &rule.Threshold,
		&rule.DurationMinutes, &rule.Enabled, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan alert rule: %w", err)
	}
	rule.Condition = models.ConditionType(condition)
	return rule, nil
}
