package models

import (
	"strings"
	"time"
)

// Alert is a notification raised for a user, either by a rule or directly
// through the API. Delivered flips to true once a delivery pass completes.
type Alert struct {
	ID               int64     `json:"id"`
	UserID           int64     `json:"user_id"`
	Text             string    `json:"text"`
	HiveID           string    `json:"hive_id,omitempty"`
	MetricType       string    `json:"metric_type,omitempty"`
	MetricValue      *float64  `json:"metric_value,omitempty"`
	RuleID           *int64    `json:"rule_id,omitempty"`
	Delivered        bool      `json:"delivered"`
	DeliveryAttempts int       `json:"delivery_attempts"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewAlert creates an undelivered Alert with an initialized timestamp.
func NewAlert(userID int64, text string) *Alert {
	return &Alert{
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}

// ConditionType is the comparator of an alert rule.
type ConditionType string

const (
	ConditionGreaterThan    ConditionType = "gt"
	ConditionLessThan       ConditionType = "lt"
	ConditionGreaterOrEqual ConditionType = "gte"
	ConditionLessOrEqual    ConditionType = "lte"
	ConditionEqual          ConditionType = "eq"
)

// ParseConditionType converts a string to ConditionType.
func ParseConditionType(s string) (ConditionType, bool) {
	switch ConditionType(strings.ToLower(strings.TrimSpace(s))) {
	case ConditionGreaterThan:
		return ConditionGreaterThan, true
	case ConditionLessThan:
		return ConditionLessThan, true
	case ConditionGreaterOrEqual:
		return ConditionGreaterOrEqual, true
	case ConditionLessOrEqual:
		return ConditionLessOrEqual, true
	case ConditionEqual:
		return ConditionEqual, true
	default:
		return "", false
	}
}

// Matches reports whether value satisfies the comparator against threshold.
func (c ConditionType) Matches(value, threshold float64) bool {
	switch c {
	case ConditionGreaterThan:
		return value > threshold
	case ConditionLessThan:
		return value < threshold
	case ConditionGreaterOrEqual:
		return value >= threshold
	case ConditionLessOrEqual:
		return value <= threshold
	case ConditionEqual:
		return value == threshold
	default:
		return false
	}
}

// AlertRule represents a persistent trigger condition for a user's metrics,
// optionally scoped to a single hive.
type AlertRule struct {
	ID              int64         `json:"id"`
	UserID          int64         `json:"user_id"`
	HiveID          string        `json:"hive_id,omitempty"`
	MetricType      string        `json:"metric_type"`
	Condition       ConditionType `json:"condition_type"`
	Threshold       float64       `json:"threshold_value"`
	DurationMinutes int           `json:"duration_minutes"`
	Enabled         bool          `json:"enabled"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// NewAlertRule creates an enabled AlertRule with initialized timestamps.
func NewAlertRule(userID int64, metricType string, condition ConditionType, threshold float64) *AlertRule {
	now := time.Now().UTC()
	return &AlertRule{
		UserID:     userID,
		MetricType: metricType,
		Condition:  condition,
		Threshold:  threshold,
		Enabled:    true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
