package delivery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hivewatch/alerts/internal/logging"
	"github.com/hivewatch/alerts/internal/metrics"
	"github.com/hivewatch/alerts/internal/models"
)

// DefaultMaxRetries is the retry cap callers use when none is configured.
const DefaultMaxRetries = 3

// ErrRetryInProgress is returned when another retry pass holds the lock.
var ErrRetryInProgress = errors.New("retry pass already in progress")

const retryLockKey = "alerts:retry-failed-deliveries"

// RetrySummary counts what one retry pass did.
type RetrySummary struct {
	Selected  int `json:"selected"`
	Retried   int `json:"retried"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Reconciler retries failed deliveries. Passes never overlap within the
// process, and with a Locker configured, across processes either.
type Reconciler struct {
	engine  *Engine
	locker  Locker
	lockTTL time.Duration
	logger  *slog.Logger
	mu      sync.Mutex
}

// NewReconciler creates a reconciler. locker may be nil.
func NewReconciler(engine *Engine, locker Locker, lockTTL time.Duration) *Reconciler {
	if lockTTL <= 0 {
		lockTTL = 5 * time.Minute
	}
	return &Reconciler{
		engine:  engine,
		locker:  locker,
		lockTTL: lockTTL,
		logger:  engine.logger.With("component", "retry"),
	}
}

// RetryFailedDeliveries resends up to one batch of failed deliveries whose
// retry count is below maxRetries. Entries whose alert or preference is
// gone, whose channel is disabled or outside its window, or that lack a
// destination are skipped without using up a retry. A maxRetries of zero or
// less selects nothing.
func (r *Reconciler) RetryFailedDeliveries(ctx context.Context, maxRetries int) (RetrySummary, error) {
	var summary RetrySummary

	if !r.mu.TryLock() {
		metrics.RetryRuns.WithLabelValues("locked").Inc()
		return summary, ErrRetryInProgress
	}
	defer r.mu.Unlock()

	if r.locker != nil {
		unlock, acquired, err := r.locker.Acquire(ctx, retryLockKey, r.lockTTL)
		if err != nil {
			metrics.RetryRuns.WithLabelValues("error").Inc()
			return summary, fmt.Errorf("acquire retry lock: %w", err)
		}
		if !acquired {
			metrics.RetryRuns.WithLabelValues("locked").Inc()
			return summary, ErrRetryInProgress
		}
		defer unlock()
	}

	summary, err := r.retry(ctx, maxRetries)
	if err != nil {
		metrics.RetryRuns.WithLabelValues("error").Inc()
		return summary, err
	}
	metrics.RetryRuns.WithLabelValues("ok").Inc()
	return summary, nil
}

func (r *Reconciler) retry(ctx context.Context, maxRetries int) (RetrySummary, error) {
	var summary RetrySummary
	e := r.engine

	r.logger.InfoContext(ctx, "starting retry of failed deliveries", "max_retries", maxRetries)
	failed, err := e.deliveries.ListFailed(ctx, maxRetries)
	if err != nil {
		return summary, fmt.Errorf("list failed deliveries: %w", err)
	}
	summary.Selected = len(failed)
	r.logger.InfoContext(ctx, "found failed deliveries to retry", "count", len(failed))

	for _, entry := range failed {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		outcome, err := r.retryEntry(ctx, entry)
		if err != nil {
			return summary, err
		}
		switch outcome {
		case models.DeliverySent:
			summary.Retried++
			summary.Succeeded++
			metrics.RetryEntries.WithLabelValues("succeeded").Inc()
		case models.DeliveryFailed:
			summary.Retried++
			summary.Failed++
			metrics.RetryEntries.WithLabelValues("failed").Inc()
		default:
			summary.Skipped++
			metrics.RetryEntries.WithLabelValues("skipped").Inc()
		}
	}

	r.logger.InfoContext(ctx, "completed retry of failed deliveries",
		"selected", summary.Selected, "succeeded", summary.Succeeded,
		"failed", summary.Failed, "skipped", summary.Skipped)
	return summary, nil
}

// retryEntry returns the new status, or "" when the entry was skipped.
func (r *Reconciler) retryEntry(ctx context.Context, entry *models.DeliveryLogEntry) (models.DeliveryStatus, error) {
	e := r.engine
	attrs := []any{logging.AlertID(entry.AlertID), logging.UserID(entry.UserID), logging.Channel(entry.Kind)}

	r.logger.InfoContext(ctx, "retrying delivery", append(attrs, logging.RetryCount(entry.RetryCount+1))...)

	alert, err := e.alerts.GetByID(ctx, entry.AlertID)
	if err != nil {
		return "", fmt.Errorf("get alert %d: %w", entry.AlertID, err)
	}
	if alert == nil {
		r.logger.WarnContext(ctx, "alert not found, skipping retry", attrs...)
		metrics.DeliverySkipped.WithLabelValues(string(entry.Kind), skipAlertMissing).Inc()
		return "", nil
	}

	pref, err := e.channels.Get(ctx, entry.UserID, entry.Kind)
	if err != nil {
		return "", fmt.Errorf("get channel preference: %w", err)
	}
	if pref == nil {
		r.logger.InfoContext(ctx, "channel not configured, skipping retry", attrs...)
		metrics.DeliverySkipped.WithLabelValues(string(entry.Kind), skipNoPreference).Inc()
		return "", nil
	}
	if !pref.Enabled {
		r.logger.InfoContext(ctx, "channel disabled, skipping retry", attrs...)
		metrics.DeliverySkipped.WithLabelValues(string(entry.Kind), skipDisabled).Inc()
		return "", nil
	}
	if !e.inWindow(ctx, pref) {
		r.logger.InfoContext(ctx, "outside time window, will retry later", attrs...)
		metrics.DeliverySkipped.WithLabelValues(string(entry.Kind), skipOutsideWindow).Inc()
		return "", nil
	}

	dest := pref.Destination()
	if dest == "" {
		r.logger.InfoContext(ctx, "no destination configured, skipping retry", attrs...)
		metrics.DeliverySkipped.WithLabelValues(string(entry.Kind), skipNoDestination).Inc()
		return "", nil
	}

	res := e.send(ctx, entry.Kind, dest, e.message(alert))
	status, errMsg, externalID := models.DeliveryFailed, res.Error, ""
	if res.Success {
		status, errMsg, externalID = models.DeliverySent, "", res.ExternalID
	}

	if err := e.deliveries.UpdateStatus(ctx, entry.AlertID, entry.Kind, status, errMsg, externalID); err != nil {
		return "", fmt.Errorf("update delivery status: %w", err)
	}
	e.recordOutcome(ctx, entry.AlertID, entry.Kind, status, externalID, errMsg)
	return status, nil
}
