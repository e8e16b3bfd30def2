package channels

import (
	"errors"
	"net/mail"
	"regexp"
	"strings"

	"github.com/hivewatch/alerts/internal/models"
)

var (
	phonePattern    = regexp.MustCompile(`^\+?[1-9][0-9]{6,14}$`)
	usernamePattern = regexp.MustCompile(`^@?[A-Za-z][A-Za-z0-9_]{4,31}$`)
)

func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return errors.New("email is not a valid address")
	}
	return nil
}

func ValidatePhoneNumber(phone string) error {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return nil
	}
	if !phonePattern.MatchString(phone) {
		return errors.New("phone_number must be in international format, e.g. +15550100")
	}
	return nil
}

func ValidateTelegramUsername(username string) error {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil
	}
	if !usernamePattern.MatchString(username) {
		return errors.New("telegram_username must be 5-32 letters, digits or underscores")
	}
	return nil
}

// ValidateWindow checks both bounds parse as HH:MM[:SS]. Empty bounds take the
// full-day defaults.
func ValidateWindow(start, end string) error {
	if start != "" {
		if _, err := models.ParseClock(start); err != nil {
			return errors.New("time_start: " + err.Error())
		}
	}
	if end != "" {
		if _, err := models.ParseClock(end); err != nil {
			return errors.New("time_end: " + err.Error())
		}
	}
	return nil
}
