package alerts

import (
	"errors"
	"math"
	"strings"
	"unicode/utf8"
)

const (
	maxTextLength   = 2000
	maxMetricLength = 64
	maxHiveIDLength = 64
)

func ValidateText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return errors.New("text is required")
	}
	if utf8.RuneCountInString(text) > maxTextLength {
		return errors.New("text must be 2000 characters or less")
	}
	return nil
}

func ValidateMetricType(metric string) error {
	if len(strings.TrimSpace(metric)) > maxMetricLength {
		return errors.New("metric_type must be 64 characters or less")
	}
	return nil
}

func ValidateHiveID(hiveID string) error {
	if len(strings.TrimSpace(hiveID)) > maxHiveIDLength {
		return errors.New("hive_id must be 64 characters or less")
	}
	return nil
}

func ValidateMetricValue(v *float64) error {
	if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
		return errors.New("metric_value must be a finite number")
	}
	return nil
}
