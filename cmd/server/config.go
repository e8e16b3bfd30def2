// Package main provides the alerts server CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/hivewatch/alerts/internal/delivery"
)

// Config represents the server configuration. Values come from the YAML file
// first and are then overridden by environment variables.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Delivery DeliveryConfig `yaml:"delivery"`
	Retry    RetryConfig    `yaml:"retry"`
	Email    EmailConfig    `yaml:"email"`
	SMS      SMSConfig      `yaml:"sms"`
	Telegram TelegramConfig `yaml:"telegram"`
	Throttle ThrottleConfig `yaml:"throttle"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
	Verbose  bool           `yaml:"-"` // set via CLI flag
}

// ServerConfig contains listener settings.
type ServerConfig struct {
	HTTPAddress      string `yaml:"http_address" env:"ALERTS_HTTP_ADDRESS"`       // default: :8080
	MetricsAddress   string `yaml:"metrics_address" env:"ALERTS_METRICS_ADDRESS"` // default: :9090, "-" disables
	RateLimitPerUser int    `yaml:"rate_limit_per_user"`                          // requests per minute (default: 120)
	RequestTimeout   string `yaml:"request_timeout"`                              // default: 60s
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"ALERTS_DB_DRIVER"` // sqlite or postgres (default: sqlite)
	Path   string `yaml:"path" env:"ALERTS_DB_PATH"`     // sqlite file (default: ./data/alerts.db)
	DSN    string `yaml:"dsn" env:"ALERTS_DB_DSN"`       // postgres connection string
}

// DeliveryConfig controls window evaluation and message content.
type DeliveryConfig struct {
	Timezone      string `yaml:"timezone" env:"ALERTS_TIMEZONE"` // IANA name (default: Local)
	SubjectPrefix string `yaml:"subject_prefix"`
	WrapMidnight  bool   `yaml:"wrap_midnight"` // allow windows such as 22:00-06:00
}

// RetryConfig controls the periodic reconciliation pass.
type RetryConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Interval   string `yaml:"interval"`    // default: 5m
	Timeout    string `yaml:"timeout"`     // default: 2m
	MaxRetries int    `yaml:"max_retries"` // default: 3
	LockTTL    string `yaml:"lock_ttl"`    // default: 5m
}

// EmailConfig selects and configures the email provider.
type EmailConfig struct {
	Provider string         `yaml:"provider" env:"ALERTS_EMAIL_PROVIDER"` // ses or postmark (default: ses)
	From     string         `yaml:"from" env:"ALERTS_SES_FROM"`
	SES      SESConfig      `yaml:"ses"`
	Postmark PostmarkConfig `yaml:"postmark"`
}

type SESConfig struct {
	Region          string `yaml:"region" env:"AWS_REGION"`
	AccessKeyID     string `yaml:"-" env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"-" env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `yaml:"endpoint" env:"ALERTS_SES_ENDPOINT"`
}

type PostmarkConfig struct {
	ServerToken  string `yaml:"-" env:"POSTMARK_SERVER_TOKEN"`
	AccountToken string `yaml:"-" env:"POSTMARK_ACCOUNT_TOKEN"`
	Tag          string `yaml:"tag"`
}

// SMSConfig holds Twilio credentials.
type SMSConfig struct {
	AccountSID          string `yaml:"-" env:"TWILIO_ACCOUNT_SID"`
	AuthToken           string `yaml:"-" env:"TWILIO_AUTH_TOKEN"`
	MessagingServiceSID string `yaml:"messaging_service_sid" env:"TWILIO_MESSAGING_SERVICE_SID"`
}

// TelegramConfig holds the bot token and chat linking settings.
type TelegramConfig struct {
	BotToken    string `yaml:"-" env:"TELEGRAM_BOT_TOKEN"`
	LinkChats   bool   `yaml:"link_chats"`   // poll for /start messages (default: true)
	PollTimeout int    `yaml:"poll_timeout"` // long-poll seconds (default: 60)
}

// ThrottleConfig limits sends per provider.
type ThrottleConfig struct {
	Disabled     bool   `yaml:"disabled"`
	MaxPerWindow int    `yaml:"max_per_window"` // default: 10
	Window       string `yaml:"window"`         // default: 1s
}

// RedisConfig enables the cross-process retry lock.
type RedisConfig struct {
	URL string `yaml:"url" env:"REDIS_URL"`
}

// LogConfig configures the slog logger.
type LogConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL"`
	Format string `yaml:"format" env:"LOG_FORMAT"`
	Env    string `yaml:"env" env:"ENV_ID"`
}

// LoadConfig reads path when set, applies a .env file if present and then
// the environment, fills defaults and validates.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{LinkChats: true},
		Retry:    RetryConfig{Enabled: true},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	cfg := &Config{
		Telegram: TelegramConfig{LinkChats: true},
		Retry:    RetryConfig{Enabled: true},
	}
	cfg.setDefaults()
	return cfg
}

// setDefaults sets default values for missing config fields.
func (c *Config) setDefaults() {
	if c.Server.HTTPAddress == "" {
		c.Server.HTTPAddress = ":8080"
	}
	if c.Server.MetricsAddress == "" {
		c.Server.MetricsAddress = ":9090"
	}
	if c.Server.RequestTimeout == "" {
		c.Server.RequestTimeout = "60s"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Path == "" {
		c.Database.Path = "./data/alerts.db"
	}
	if c.Delivery.SubjectPrefix == "" {
		c.Delivery.SubjectPrefix = delivery.DefaultSubjectPrefix
	}
	if c.Retry.Interval == "" {
		c.Retry.Interval = "5m"
	}
	if c.Retry.Timeout == "" {
		c.Retry.Timeout = "2m"
	}
	if c.Retry.MaxRetries == 0 {
		c.Retry.MaxRetries = delivery.DefaultMaxRetries
	}
	if c.Retry.LockTTL == "" {
		c.Retry.LockTTL = "5m"
	}
	if c.Email.Provider == "" {
		c.Email.Provider = "ses"
	}
	if c.Email.SES.Region == "" {
		c.Email.SES.Region = "us-east-1"
	}
	if c.Telegram.PollTimeout == 0 {
		c.Telegram.PollTimeout = 60
	}
	if c.Throttle.MaxPerWindow == 0 {
		c.Throttle.MaxPerWindow = 10
	}
	if c.Throttle.Window == "" {
		c.Throttle.Window = "1s"
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "sqlite3":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "postgres", "postgresql", "pgx":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for postgres")
		}
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}

	switch c.Email.Provider {
	case "ses", "postmark":
	default:
		return fmt.Errorf("email.provider must be ses or postmark, got %q", c.Email.Provider)
	}

	if _, err := c.Location(); err != nil {
		return err
	}

	durations := []struct {
		name  string
		value string
	}{
		{"server.request_timeout", c.Server.RequestTimeout},
		{"retry.interval", c.Retry.Interval},
		{"retry.timeout", c.Retry.Timeout},
		{"retry.lock_ttl", c.Retry.LockTTL},
		{"throttle.window", c.Throttle.Window},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", d.name, err)
		}
		if v <= 0 {
			return fmt.Errorf("%s must be positive", d.name)
		}
	}

	if c.Retry.MaxRetries < 1 {
		return fmt.Errorf("retry.max_retries must be at least 1")
	}
	if c.Throttle.MaxPerWindow < 1 {
		return fmt.Errorf("throttle.max_per_window must be at least 1")
	}
	return nil
}

// Location returns the time zone delivery windows are evaluated in.
func (c *Config) Location() (*time.Location, error) {
	if c.Delivery.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Delivery.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid delivery.timezone: %w", err)
	}
	return loc, nil
}

// duration parses a value already checked by Validate.
func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
