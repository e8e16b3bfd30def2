// Package alerts serves alert creation and delivery status.
package alerts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hivewatch/alerts/internal/api/middleware"
	"github.com/hivewatch/alerts/internal/api/respond"
	"github.com/hivewatch/alerts/internal/delivery"
	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/storage"
)

// Deliverer creates an alert and fans it out.
type Deliverer interface {
	CreateAndDeliverAlert(ctx context.Context, in delivery.NewAlert) (int64, error)
}

// Handler handles alert endpoints.
type Handler struct {
	storage   storage.Storage
	deliverer Deliverer
	logger    *slog.Logger
}

func NewHandler(store storage.Storage, deliverer Deliverer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{storage: store, deliverer: deliverer, logger: logger}
}

type CreateRequest struct {
	Text        string   `json:"text"`
	HiveID      string   `json:"hive_id"`
	MetricType  string   `json:"metric_type"`
	MetricValue *float64 `json:"metric_value"`
	RuleID      *int64   `json:"rule_id"`
}

// CreateResponse is the stored alert with the outcome of each channel.
type CreateResponse struct {
	Alert      *models.Alert              `json:"alert"`
	Deliveries []*models.DeliveryLogEntry `json:"deliveries"`
}

// List returns the caller's alerts, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	alerts, err := h.storage.Alerts().ListByUser(ctx, middleware.GetUserID(ctx))
	if err != nil {
		respond.Internal(w, r, h.logger, "list alerts", err)
		return
	}
	if alerts == nil {
		alerts = []*models.Alert{}
	}
	respond.OK(w, alerts)
}

// Create stores an alert for the caller and delivers it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSONError(w, respond.ErrInvalidBody)
		return
	}

	for _, err := range []error{
		ValidateText(req.Text),
		ValidateHiveID(req.HiveID),
		ValidateMetricType(req.MetricType),
		ValidateMetricValue(req.MetricValue),
	} {
		if err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
	}

	ctx := r.Context()
	userID := middleware.GetUserID(ctx)

	if req.RuleID != nil {
		rule, err := h.storage.Rules().GetByID(ctx, *req.RuleID)
		if err != nil {
			respond.Internal(w, r, h.logger, "create alert: get rule", err)
			return
		}
		if rule == nil || rule.UserID != userID {
			respond.JSONError(w, respond.NewValidationError("rule not found"))
			return
		}
	}

	id, err := h.deliverer.CreateAndDeliverAlert(ctx, delivery.NewAlert{
		UserID:      userID,
		Text:        strings.TrimSpace(req.Text),
		HiveID:      strings.TrimSpace(req.HiveID),
		MetricType:  strings.TrimSpace(req.MetricType),
		MetricValue: req.MetricValue,
		RuleID:      req.RuleID,
	})
	if err != nil {
		if id == 0 {
			respond.Internal(w, r, h.logger, "create alert", err)
			return
		}
		h.logger.ErrorContext(ctx, "alert stored but delivery bookkeeping failed", "alert_id", id, "error", err)
		respond.JSONError(w, respond.NewInconsistentStorage("alert was stored but its delivery state could not be recorded"))
		return
	}

	alert, err := h.storage.Alerts().GetByID(ctx, id)
	if err != nil {
		respond.Internal(w, r, h.logger, "create alert: reload", err)
		return
	}
	if alert == nil {
		respond.JSONError(w, respond.NewInconsistentStorage("alert was created but cannot be read back"))
		return
	}
	entries, err := h.storage.Deliveries().ListByAlert(ctx, id)
	if err != nil {
		respond.Internal(w, r, h.logger, "create alert: list deliveries", err)
		return
	}
	if entries == nil {
		entries = []*models.DeliveryLogEntry{}
	}

	respond.Created(w, CreateResponse{Alert: alert, Deliveries: entries})
}

// Deliveries returns the per-channel delivery log of one of the caller's alerts.
func (h *Handler) Deliveries(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.JSONError(w, respond.NewBadRequest("invalid alert id"))
		return
	}

	ctx := r.Context()
	alert, err := h.storage.Alerts().GetByID(ctx, id)
	if err != nil {
		respond.Internal(w, r, h.logger, "get alert", err)
		return
	}
	if alert == nil || alert.UserID != middleware.GetUserID(ctx) {
		respond.JSONError(w, respond.NewNotFound("alert not found"))
		return
	}

	entries, err := h.storage.Deliveries().ListByAlert(ctx, id)
	if err != nil {
		respond.Internal(w, r, h.logger, "list deliveries", err)
		return
	}
	if entries == nil {
		entries = []*models.DeliveryLogEntry{}
	}
	respond.OK(w, entries)
}
