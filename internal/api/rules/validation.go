package rules

import (
	"errors"
	"math"
	"strings"

	"github.com/hivewatch/alerts/internal/models"
)

const maxDurationMinutes = 7 * 24 * 60

func ValidateMetricType(metric string) error {
	metric = strings.TrimSpace(metric)
	if metric == "" {
		return errors.New("metric_type is required")
	}
	if len(metric) > 64 {
		return errors.New("metric_type must be 64 characters or less")
	}
	return nil
}

func ValidateCondition(s string) (models.ConditionType, error) {
	c, ok := models.ParseConditionType(s)
	if !ok {
		return "", errors.New("condition_type must be one of gt, lt, gte, lte, eq")
	}
	return c, nil
}

func ValidateThreshold(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errors.New("threshold_value must be a finite number")
	}
	return nil
}

func ValidateDuration(minutes int) error {
	if minutes < 0 || minutes > maxDurationMinutes {
		return errors.New("duration_minutes must be between 0 and 10080")
	}
	return nil
}
