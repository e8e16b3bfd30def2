package notifier

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/hivewatch/alerts/internal/metrics"
	"github.com/hivewatch/alerts/internal/models"
)

// RateLimitConfig holds per-provider throttle settings.
type RateLimitConfig struct {
	MaxPerWindow int           // Sends allowed per window (default: 10)
	Window       time.Duration // Window length (default: 1 second)
	Enabled      bool
}

// DefaultRateLimitConfig returns default throttle settings.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		MaxPerWindow: 10,
		Window:       time.Second,
		Enabled:      true,
	}
}

// Throttle wraps a Sender and spaces out its sends. Callers block until a
// token is available or ctx is done.
type Throttle struct {
	next    Sender
	limiter *rate.Limiter
}

// NewThrottle wraps next. A disabled config returns next unchanged.
func NewThrottle(next Sender, config RateLimitConfig) Sender {
	if !config.Enabled {
		return next
	}
	if config.MaxPerWindow <= 0 {
		config.MaxPerWindow = 10
	}
	if config.Window <= 0 {
		config.Window = time.Second
	}

	every := config.Window / time.Duration(config.MaxPerWindow)
	return &Throttle{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(every), config.MaxPerWindow),
	}
}

// Channel returns the wrapped sender's channel.
func (t *Throttle) Channel() models.ChannelKind {
	return t.next.Channel()
}

// Send waits for a token and then delegates. A wait cut short by ctx is
// reported as a failed Result.
func (t *Throttle) Send(ctx context.Context, destination string, msg Message) Result {
	if err := t.limiter.Wait(ctx); err != nil {
		metrics.ProviderThrottled.WithLabelValues(string(t.next.Channel())).Inc()
		return Failed(fmt.Errorf("rate limited: %w", err))
	}
	return t.next.Send(ctx, destination, msg)
}

// Close closes the wrapped sender.
func (t *Throttle) Close() error {
	return t.next.Close()
}
