// Package rules serves alert rule management.
package rules

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hivewatch/alerts/internal/api/middleware"
	"github.com/hivewatch/alerts/internal/api/respond"
	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/storage"
)

// Handler handles alert rule endpoints.
type Handler struct {
	rules  storage.RuleRepository
	logger *slog.Logger
}

func NewHandler(rules storage.RuleRepository, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{rules: rules, logger: logger}
}

type CreateRequest struct {
	HiveID          string  `json:"hive_id"`
	MetricType      string  `json:"metric_type"`
	ConditionType   string  `json:"condition_type"`
	ThresholdValue  float64 `json:"threshold_value"`
	DurationMinutes int     `json:"duration_minutes"`
	Enabled         *bool   `json:"enabled"`
}

// UpdateRequest changes only the fields that are present.
type UpdateRequest struct {
	HiveID          *string  `json:"hive_id"`
	MetricType      *string  `json:"metric_type"`
	ConditionType   *string  `json:"condition_type"`
	ThresholdValue  *float64 `json:"threshold_value"`
	DurationMinutes *int     `json:"duration_minutes"`
	Enabled         *bool    `json:"enabled"`
}

// List returns the caller's rules, optionally filtered by hive_id and metric_type.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter := storage.RuleFilter{
		HiveID:     strings.TrimSpace(r.URL.Query().Get("hive_id")),
		MetricType: strings.TrimSpace(r.URL.Query().Get("metric_type")),
	}
	rules, err := h.rules.List(ctx, middleware.GetUserID(ctx), filter)
	if err != nil {
		respond.Internal(w, r, h.logger, "list rules", err)
		return
	}
	if rules == nil {
		rules = []*models.AlertRule{}
	}
	respond.OK(w, rules)
}

// Create adds a rule for the caller.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSONError(w, respond.ErrInvalidBody)
		return
	}

	if err := ValidateMetricType(req.MetricType); err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}
	condition, err := ValidateCondition(req.ConditionType)
	if err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}
	if err := ValidateThreshold(req.ThresholdValue); err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}
	if err := ValidateDuration(req.DurationMinutes); err != nil {
		respond.JSONError(w, respond.NewValidationError(err.Error()))
		return
	}

	ctx := r.Context()
	rule := models.NewAlertRule(middleware.GetUserID(ctx), strings.TrimSpace(req.MetricType), condition, req.ThresholdValue)
	rule.HiveID = strings.TrimSpace(req.HiveID)
	rule.DurationMinutes = req.DurationMinutes
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if _, err := h.rules.Create(ctx, rule); err != nil {
		respond.Internal(w, r, h.logger, "create rule", err)
		return
	}

	h.logger.InfoContext(ctx, "alert rule created", "rule_id", rule.ID, "user_id", rule.UserID, "metric_type", rule.MetricType)
	respond.Created(w, rule)
}

// Update modifies one of the caller's rules.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	var req UpdateRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSONError(w, respond.ErrInvalidBody)
		return
	}

	ctx := r.Context()
	rule, err := h.rules.GetByID(ctx, id)
	if err != nil {
		respond.Internal(w, r, h.logger, "update rule: get", err)
		return
	}
	if rule == nil || rule.UserID != middleware.GetUserID(ctx) {
		respond.JSONError(w, respond.NewNotFound("rule not found"))
		return
	}

	if req.HiveID != nil {
		rule.HiveID = strings.TrimSpace(*req.HiveID)
	}
	if req.MetricType != nil {
		if err := ValidateMetricType(*req.MetricType); err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
		rule.MetricType = strings.TrimSpace(*req.MetricType)
	}
	if req.ConditionType != nil {
		condition, err := ValidateCondition(*req.ConditionType)
		if err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
		rule.Condition = condition
	}
	if req.ThresholdValue != nil {
		if err := ValidateThreshold(*req.ThresholdValue); err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
		rule.Threshold = *req.ThresholdValue
	}
	if req.DurationMinutes != nil {
		if err := ValidateDuration(*req.DurationMinutes); err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
		rule.DurationMinutes = *req.DurationMinutes
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.rules.Update(ctx, rule); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.JSONError(w, respond.NewNotFound("rule not found"))
			return
		}
		respond.Internal(w, r, h.logger, "update rule", err)
		return
	}
	respond.OK(w, rule)
}

// Delete removes one of the caller's rules.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	deleted, err := h.rules.Delete(ctx, middleware.GetUserID(ctx), id)
	if err != nil {
		respond.Internal(w, r, h.logger, "delete rule", err)
		return
	}
	if !deleted {
		respond.JSONError(w, respond.NewNotFound("rule not found"))
		return
	}
	respond.NoContent(w)
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respond.JSONError(w, respond.NewBadRequest("invalid rule id"))
		return 0, false
	}
	return id, true
}
