package notifier

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hivewatch/alerts/internal/metrics"
	"github.com/hivewatch/alerts/internal/models"
)

func TestThrottleDisabledReturnsSender(t *testing.T) {
	inner := &mockSender{kind: models.ChannelEmail}
	s := NewThrottle(inner, RateLimitConfig{Enabled: false})
	assert.Same(t, Sender(inner), s)
}

func TestThrottleBurst(t *testing.T) {
	inner := &mockSender{kind: models.ChannelSMS, result: Sent("ok")}
	s := NewThrottle(inner, RateLimitConfig{MaxPerWindow: 3, Window: time.Hour, Enabled: true})
	assert.Equal(t, models.ChannelSMS, s.Channel())

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		res := s.Send(ctx, "+1", Message{Body: "x"})
		assert.True(t, res.Success, "send %d should pass within burst", i+1)
	}

	throttled := metrics.ProviderThrottled.WithLabelValues(string(models.ChannelSMS))
	before := testutil.ToFloat64(throttled)

	// Next token is far away; a short deadline gives up.
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := s.Send(ctx, "+1", Message{Body: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "rate limited")
	assert.Len(t, inner.sent, 3)

	_, ok := s.(*Throttle)
	require.True(t, ok)
	assert.Equal(t, 1.0, testutil.ToFloat64(throttled)-before)
}

func TestThrottleCancelledContext(t *testing.T) {
	inner := &mockSender{kind: models.ChannelTelegram, result: Sent("1")}
	s := NewThrottle(inner, DefaultRateLimitConfig())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := s.Send(ctx, "42", Message{Body: "x"})
	assert.False(t, res.Success)
	assert.Empty(t, inner.sent)
}

func TestThrottleClose(t *testing.T) {
	inner := &mockSender{kind: models.ChannelEmail}
	s := NewThrottle(inner, DefaultRateLimitConfig())
	require.NoError(t, s.Close())
	assert.True(t, inner.closed)
}
