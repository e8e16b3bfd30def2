// Package delivery decides when alerts may be sent, fans them out over a
// user's channels and retries failed deliveries.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/hivewatch/alerts/internal/logging"
	"github.com/hivewatch/alerts/internal/metrics"
	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/notifier"
	"github.com/hivewatch/alerts/internal/storage"
)

// DefaultSubjectPrefix starts every alert email subject.
const DefaultSubjectPrefix = "Hive Alert"

// Skip reasons reported in metrics.
const (
	skipDisabled      = "disabled"
	skipOutsideWindow = "outside_window"
	skipNoPreference  = "no_preference"
	skipNoDestination = "no_destination"
	skipAlertMissing  = "alert_missing"
)

// NewAlert is the input to CreateAndDeliverAlert.
type NewAlert struct {
	UserID      int64
	Text        string
	HiveID      string
	MetricType  string
	MetricValue *float64
	RuleID      *int64
}

// Engine creates alerts and delivers them over every enabled channel.
type Engine struct {
	alerts     storage.AlertRepository
	channels   storage.ChannelRepository
	deliveries storage.DeliveryRepository
	rules      storage.RuleRepository
	senders    *notifier.Registry
	logger     *slog.Logger

	now           func() time.Time
	location      *time.Location
	subjectPrefix string
	wrapMidnight  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the time source used for window checks.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLocation sets the timezone delivery windows are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithSubjectPrefix sets the email subject prefix.
func WithSubjectPrefix(prefix string) Option {
	return func(e *Engine) {
		if prefix != "" {
			e.subjectPrefix = prefix
		}
	}
}

// WithWrapMidnight makes windows whose start is after their end span
// midnight instead of never matching.
func WithWrapMidnight(wrap bool) Option {
	return func(e *Engine) {
		e.wrapMidnight = wrap
	}
}

// NewEngine creates an engine over store's repositories.
func NewEngine(store storage.Storage, senders *notifier.Registry, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if senders == nil {
		senders = notifier.NewRegistry()
	}
	e := &Engine{
		alerts:        store.Alerts(),
		channels:      store.Channels(),
		deliveries:    store.Deliveries(),
		rules:         store.Rules(),
		senders:       senders,
		logger:        logger.With("component", "delivery"),
		now:           time.Now,
		location:      time.Local,
		subjectPrefix: DefaultSubjectPrefix,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ShouldSendAlert reports whether the user's preference for kind exists, is
// enabled and allows delivery at the current time.
func (e *Engine) ShouldSendAlert(ctx context.Context, userID int64, kind models.ChannelKind) (bool, error) {
	pref, err := e.channels.Get(ctx, userID, kind)
	if err != nil {
		return false, fmt.Errorf("get channel preference: %w", err)
	}
	if pref == nil || !pref.Enabled {
		return false, nil
	}
	return e.inWindow(ctx, pref), nil
}

// inWindow checks the preference window at the engine's current time. An
// unparsable window never matches.
func (e *Engine) inWindow(ctx context.Context, pref *models.ChannelPreference) bool {
	now := e.now().In(e.location)
	window := pref.Window()

	var ok bool
	var err error
	if e.wrapMidnight {
		ok, err = window.ContainsWrapping(now)
	} else {
		ok, err = window.Contains(now)
	}
	if err != nil {
		e.logger.WarnContext(ctx, "invalid delivery window",
			logging.UserID(pref.UserID), logging.Channel(pref.Kind), logging.Error(err))
		return false
	}
	return ok
}

// CreateAndDeliverAlert stores the alert, attempts every enabled in-window
// channel in turn and marks the alert delivered. Channel failures are
// recorded in the delivery log and never fail the call; store errors do.
// Cancellation of ctx is ignored so a started fan-out always completes.
func (e *Engine) CreateAndDeliverAlert(ctx context.Context, in NewAlert) (int64, error) {
	ctx = context.WithoutCancel(ctx)

	alert := models.NewAlert(in.UserID, in.Text)
	alert.HiveID = in.HiveID
	alert.MetricType = in.MetricType
	alert.MetricValue = in.MetricValue
	alert.RuleID = in.RuleID

	alertID, err := e.alerts.Create(ctx, alert)
	if err != nil {
		return 0, fmt.Errorf("create alert: %w", err)
	}
	metrics.AlertsCreated.Inc()

	prefs, err := e.channels.List(ctx, in.UserID)
	if err != nil {
		return alertID, fmt.Errorf("list channel preferences: %w", err)
	}

	msg := e.message(alert)
	for _, pref := range prefs {
		if !pref.Enabled {
			metrics.DeliverySkipped.WithLabelValues(string(pref.Kind), skipDisabled).Inc()
			continue
		}
		if !e.inWindow(ctx, pref) {
			e.logger.InfoContext(ctx, "skipping delivery outside time window",
				logging.AlertID(alertID), logging.UserID(in.UserID), logging.Channel(pref.Kind))
			metrics.DeliverySkipped.WithLabelValues(string(pref.Kind), skipOutsideWindow).Inc()
			continue
		}

		e.logger.InfoContext(ctx, "delivering alert",
			logging.AlertID(alertID), logging.UserID(in.UserID), logging.Channel(pref.Kind))
		if err := e.deliver(ctx, alertID, pref, msg); err != nil {
			return alertID, err
		}
	}

	if err := e.alerts.MarkDelivered(ctx, alertID); err != nil {
		return alertID, fmt.Errorf("mark alert delivered: %w", err)
	}
	return alertID, nil
}

// deliver makes the first attempt on one channel and logs its outcome.
func (e *Engine) deliver(ctx context.Context, alertID int64, pref *models.ChannelPreference, msg notifier.Message) error {
	var entry *models.DeliveryLogEntry

	// Unknown kinds have no destination either.
	if dest := pref.Destination(); dest == "" {
		entry = models.NewFailedEntry(alertID, pref.UserID, pref.Kind, pref.MissingDestinationError())
	} else {
		res := e.send(ctx, pref.Kind, dest, msg)
		if res.Success {
			entry = models.NewSentEntry(alertID, pref.UserID, pref.Kind, res.ExternalID)
		} else {
			entry = models.NewFailedEntry(alertID, pref.UserID, pref.Kind, res.Error)
		}
	}

	if err := e.deliveries.LogAttempt(ctx, entry); err != nil {
		return fmt.Errorf("log delivery attempt: %w", err)
	}
	e.recordOutcome(ctx, alertID, pref.Kind, entry.Status, entry.ExternalMessageID, entry.ErrorMessage)
	return nil
}

// send calls the channel's sender. A missing sender or a panicking one
// yields a failed Result, and a failure always carries an error text.
func (e *Engine) send(ctx context.Context, kind models.ChannelKind, destination string, msg notifier.Message) (res notifier.Result) {
	sender, ok := e.senders.Lookup(kind)
	if !ok {
		return notifier.Failed(fmt.Errorf("%s sender %w", kind, notifier.ErrNotConfigured))
	}

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "sender panicked", logging.Channel(kind), "panic", r)
			res = notifier.Result{Error: fmt.Sprintf("panic: %v", r)}
		}
		metrics.ProviderSendDuration.WithLabelValues(string(kind)).Observe(time.Since(start).Seconds())
	}()

	res = sender.Send(ctx, destination, msg)
	if !res.Success && res.Error == "" {
		res = notifier.Failed(nil)
	}
	return res
}

func (e *Engine) recordOutcome(ctx context.Context, alertID int64, kind models.ChannelKind, status models.DeliveryStatus, externalID, errMsg string) {
	metrics.DeliveryAttempts.WithLabelValues(string(kind), string(status)).Inc()
	if status == models.DeliverySent {
		e.logger.InfoContext(ctx, "alert sent",
			logging.AlertID(alertID), logging.Channel(kind), logging.ExternalID(externalID))
		return
	}
	e.logger.WarnContext(ctx, "alert delivery failed",
		logging.AlertID(alertID), logging.Channel(kind), slog.String("reason", errMsg))
}

// message renders an alert into provider-agnostic content.
func (e *Engine) message(alert *models.Alert) notifier.Message {
	subject := e.subjectPrefix
	if alert.MetricType != "" {
		subject = fmt.Sprintf("%s: %s", e.subjectPrefix, alert.MetricType)
	}

	var details []notifier.Detail
	if alert.HiveID != "" {
		details = append(details, notifier.Detail{Label: "Hive", Value: alert.HiveID})
	}
	if alert.MetricType != "" {
		details = append(details, notifier.Detail{Label: "Metric", Value: alert.MetricType})
	}
	if alert.MetricValue != nil {
		details = append(details, notifier.Detail{Label: "Value", Value: strconv.FormatFloat(*alert.MetricValue, 'f', -1, 64)})
	}

	return notifier.Message{Subject: subject, Body: alert.Text, Details: details}
}

// EvaluateRules loads the enabled rules and returns how many there are.
// Threshold matching against telemetry happens upstream.
func (e *Engine) EvaluateRules(ctx context.Context) (int, error) {
	e.logger.InfoContext(ctx, "starting alert rule evaluation")
	rules, err := e.rules.ListEnabled(ctx)
	if err != nil {
		return 0, fmt.Errorf("list enabled rules: %w", err)
	}
	e.logger.InfoContext(ctx, "active alert rules loaded", "count", len(rules))
	return len(rules), nil
}
