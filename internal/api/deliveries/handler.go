// Package deliveries serves on-demand retry passes.
package deliveries

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/hivewatch/alerts/internal/api/respond"
	"github.com/hivewatch/alerts/internal/delivery"
)

// Retrier runs one reconciliation pass.
type Retrier interface {
	RetryFailedDeliveries(ctx context.Context, maxRetries int) (delivery.RetrySummary, error)
}

type Handler struct {
	retrier    Retrier
	maxRetries int
	logger     *slog.Logger
}

// NewHandler creates a handler. maxRetries is used when the request does not
// name its own cap.
func NewHandler(retrier Retrier, maxRetries int, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxRetries <= 0 {
		maxRetries = delivery.DefaultMaxRetries
	}
	return &Handler{retrier: retrier, maxRetries: maxRetries, logger: logger}
}

type RetryRequest struct {
	MaxRetries *int `json:"max_retries"`
}

// Retry re-attempts failed deliveries and returns the pass summary.
func (h *Handler) Retry(w http.ResponseWriter, r *http.Request) {
	maxRetries := h.maxRetries

	var req RetryRequest
	if err := respond.Decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		respond.JSONError(w, respond.ErrInvalidBody)
		return
	}
	if req.MaxRetries != nil {
		if *req.MaxRetries < 1 || *req.MaxRetries > 10 {
			respond.JSONError(w, respond.NewValidationError("max_retries must be between 1 and 10"))
			return
		}
		maxRetries = *req.MaxRetries
	}

	summary, err := h.retrier.RetryFailedDeliveries(r.Context(), maxRetries)
	if err != nil {
		if errors.Is(err, delivery.ErrRetryInProgress) {
			respond.JSONError(w, respond.NewConflict("a retry pass is already running"))
			return
		}
		respond.Internal(w, r, h.logger, "retry failed deliveries", err)
		return
	}
	respond.OK(w, summary)
}
