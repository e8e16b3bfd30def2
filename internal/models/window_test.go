package models

import (
	"math"
	"testing"
	"time"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, 6, 1, hour, minute, 0, 0, time.UTC)
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"00:00", 0},
		{"09:30", 9.5},
		{"12:00", 12},
		{"15:15", 15.25},
		{"23:59", 23 + 59.0/60},
		{"09:30:00", 9.5},
		{"17:45:30", 17.75},
		{"24:00", 24},
		{"24:00:00", 24},
	}
	for _, tt := range tests {
		got, err := ParseClock(tt.in)
		if err != nil {
			t.Fatalf("ParseClock(%q) error: %v", tt.in, err)
		}
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("ParseClock(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got, _ := ParseClock("23:59"); math.Abs(got-23.983) > 0.001 {
		t.Errorf("ParseClock(23:59) = %v, want ~23.983", got)
	}
}

func TestParseClockInvalid(t *testing.T) {
	for _, in := range []string{"", "9", "24:01", "24:00:01", "25:00", "12:60", "12:00:60", "ab:cd", "-1:00", "1:2:3:4"} {
		if _, err := ParseClock(in); err == nil {
			t.Errorf("ParseClock(%q) expected error", in)
		}
	}
}

func TestTimeWindowHalfOpen(t *testing.T) {
	w := TimeWindow{Start: "09:30", End: "17:00"}

	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(9, 29), false},
		{at(9, 30), true},
		{at(12, 0), true},
		{at(16, 59), true},
		{at(17, 0), false},
		{at(23, 0), false},
	}
	for _, tt := range tests {
		got, err := w.Contains(tt.now)
		if err != nil {
			t.Fatalf("Contains error: %v", err)
		}
		if got != tt.want {
			t.Errorf("Contains(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestTimeWindowMidnightSpanNeverMatches(t *testing.T) {
	w := TimeWindow{Start: "22:00", End: "06:00"}
	for _, now := range []time.Time{at(23, 0), at(2, 0), at(12, 0)} {
		got, err := w.Contains(now)
		if err != nil {
			t.Fatalf("Contains error: %v", err)
		}
		if got {
			t.Errorf("Contains(%s) = true, want false for start > end", now.Format("15:04"))
		}
	}
}

func TestTimeWindowContainsWrapping(t *testing.T) {
	w := TimeWindow{Start: "22:00", End: "06:00"}
	tests := []struct {
		now  time.Time
		want bool
	}{
		{at(22, 0), true},
		{at(23, 30), true},
		{at(5, 59), true},
		{at(6, 0), false},
		{at(12, 0), false},
	}
	for _, tt := range tests {
		got, err := w.ContainsWrapping(tt.now)
		if err != nil {
			t.Fatalf("ContainsWrapping error: %v", err)
		}
		if got != tt.want {
			t.Errorf("ContainsWrapping(%s) = %v, want %v", tt.now.Format("15:04"), got, tt.want)
		}
	}
}

func TestChannelPreferenceDefaults(t *testing.T) {
	p := &ChannelPreference{Kind: ChannelEmail, Email: "a@example.com", Enabled: true}
	w := p.Window()
	if w.Start != "00:00" || w.End != "23:59" {
		t.Fatalf("window = %+v, want 00:00-23:59", w)
	}
	for h := 0; h < 24; h++ {
		ok, err := w.Contains(at(h, 0))
		if err != nil || !ok {
			t.Errorf("default window should allow %02d:00 (ok=%v err=%v)", h, ok, err)
		}
	}
}

func TestChannelPreferenceDestination(t *testing.T) {
	chatID := int64(374550738)

	tests := []struct {
		name    string
		pref    ChannelPreference
		want    string
		missing string
	}{
		{"email", ChannelPreference{Kind: ChannelEmail, Email: " a@b.io "}, "a@b.io", "No email configured"},
		{"email missing", ChannelPreference{Kind: ChannelEmail}, "", "No email configured"},
		{"sms", ChannelPreference{Kind: ChannelSMS, PhoneNumber: "+37200000000"}, "+37200000000", "No phone number configured"},
		{"telegram chat", ChannelPreference{Kind: ChannelTelegram, TelegramChatID: &chatID}, "374550738", "No Telegram chat ID configured"},
		{"telegram username only", ChannelPreference{Kind: ChannelTelegram, TelegramUsername: "beekeeper"}, "", "No Telegram chat ID configured"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pref.Destination(); got != tt.want {
				t.Errorf("Destination() = %q, want %q", got, tt.want)
			}
			if got := tt.pref.MissingDestinationError(); got != tt.missing {
				t.Errorf("MissingDestinationError() = %q, want %q", got, tt.missing)
			}
		})
	}
}

func TestParseChannelKind(t *testing.T) {
	if k, ok := ParseChannelKind("telegram"); !ok || k != ChannelTelegram {
		t.Errorf("ParseChannelKind(telegram) = %v, %v", k, ok)
	}
	if _, ok := ParseChannelKind("PIGEON"); ok {
		t.Error("ParseChannelKind(PIGEON) should fail")
	}
}

func TestNormalizeTelegramUsername(t *testing.T) {
	tests := map[string]string{
		"tot_ra":   "@tot_ra",
		"@tot_ra":  "@tot_ra",
		"@@tot_ra": "@tot_ra",
		"":         "",
	}
	for in, want := range tests {
		if got := NormalizeTelegramUsername(in); got != want {
			t.Errorf("NormalizeTelegramUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestConditionMatches(t *testing.T) {
	if !ConditionGreaterThan.Matches(39.5, 38) {
		t.Error("39.5 > 38 should match")
	}
	if ConditionLessThan.Matches(39.5, 38) {
		t.Error("39.5 < 38 should not match")
	}
	if !ConditionEqual.Matches(1, 1) {
		t.Error("1 == 1 should match")
	}
	if _, ok := ParseConditionType("between"); ok {
		t.Error("unknown condition should not parse")
	}
}

func TestTimeWindowStoredWithSeconds(t *testing.T) {
	w := TimeWindow{Start: "08:00:00", End: "24:00"}

	ok, err := w.Contains(at(23, 59))
	if err != nil {
		t.Fatalf("Contains error: %v", err)
	}
	if !ok {
		t.Error("23:59 should fall inside 08:00:00-24:00")
	}

	ok, err = w.Contains(at(7, 59))
	if err != nil {
		t.Fatalf("Contains error: %v", err)
	}
	if ok {
		t.Error("07:59 should fall outside 08:00:00-24:00")
	}
}
