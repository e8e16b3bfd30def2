package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeWindow is a daily delivery window bounded by two wall-clock times in
// HH:MM form.
type TimeWindow struct {
	Start string
	End   string
}

// ParseClock converts an HH:MM or HH:MM:SS string to decimal hours
// (hour + minute/60). Seconds are accepted and ignored, matching
// ClockHours. "24:00" is end of day.
func ParseClock(s string) (float64, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 24 {
		return 0, fmt.Errorf("invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("invalid minute in %q", s)
	}
	second := 0
	if len(parts) == 3 {
		second, err = strconv.Atoi(parts[2])
		if err != nil || second < 0 || second > 59 {
			return 0, fmt.Errorf("invalid second in %q", s)
		}
	}
	if hour == 24 && (minute != 0 || second != 0) {
		return 0, fmt.Errorf("invalid time %q: past end of day", s)
	}
	return float64(hour) + float64(minute)/60, nil
}

// ClockHours returns t's wall-clock time as decimal hours. Seconds are ignored.
func ClockHours(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// Contains reports whether now falls in [Start, End). A window whose start
// is after its end never contains anything.
func (w TimeWindow) Contains(now time.Time) (bool, error) {
	start, end, err := w.bounds()
	if err != nil {
		return false, err
	}
	current := ClockHours(now)
	return current >= start && current < end, nil
}

// ContainsWrapping is Contains with windows like 22:00-06:00 treated as
// spanning midnight.
func (w TimeWindow) ContainsWrapping(now time.Time) (bool, error) {
	start, end, err := w.bounds()
	if err != nil {
		return false, err
	}
	current := ClockHours(now)
	if start <= end {
		return current >= start && current < end, nil
	}
	return current >= start || current < end, nil
}

func (w TimeWindow) bounds() (float64, float64, error) {
	start, err := ParseClock(w.Start)
	if err != nil {
		return 0, 0, fmt.Errorf("window start: %w", err)
	}
	end, err := ParseClock(w.End)
	if err != nil {
		return 0, 0, fmt.Errorf("window end: %w", err)
	}
	return start, end, nil
}
