// Package channels serves per-user channel preferences.
package channels

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/hivewatch/alerts/internal/api/middleware"
	"github.com/hivewatch/alerts/internal/api/respond"
	"github.com/hivewatch/alerts/internal/models"
	"github.com/hivewatch/alerts/internal/storage"
)

// WindowChecker answers whether a channel may deliver right now.
type WindowChecker interface {
	ShouldSendAlert(ctx context.Context, userID int64, kind models.ChannelKind) (bool, error)
}

// Handler handles channel preference endpoints.
type Handler struct {
	channels storage.ChannelRepository
	checker  WindowChecker
	logger   *slog.Logger
}

func NewHandler(channels storage.ChannelRepository, checker WindowChecker, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{channels: channels, checker: checker, logger: logger}
}

// UpsertRequest replaces the caller's preference for one channel. Enabled
// defaults to true.
type UpsertRequest struct {
	Email            string `json:"email"`
	PhoneNumber      string `json:"phone_number"`
	TelegramUsername string `json:"telegram_username"`
	TimeStart        string `json:"time_start"`
	TimeEnd          string `json:"time_end"`
	Enabled          *bool  `json:"enabled"`
}

type ShouldSendResponse struct {
	Channel    models.ChannelKind `json:"channel_type"`
	ShouldSend bool               `json:"should_send"`
}

// List returns all of the caller's preferences.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	prefs, err := h.channels.List(ctx, middleware.GetUserID(ctx))
	if err != nil {
		respond.Internal(w, r, h.logger, "list channels", err)
		return
	}
	if prefs == nil {
		prefs = []*models.ChannelPreference{}
	}
	respond.OK(w, prefs)
}

// Get returns the caller's preference for one channel.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	pref, err := h.channels.Get(ctx, middleware.GetUserID(ctx), kind)
	if err != nil {
		respond.Internal(w, r, h.logger, "get channel", err)
		return
	}
	if pref == nil {
		respond.JSONError(w, respond.NewNotFound("channel not configured"))
		return
	}
	respond.OK(w, pref)
}

// Put creates or replaces the caller's preference for one channel.
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}

	var req UpsertRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.JSONError(w, respond.ErrInvalidBody)
		return
	}

	for _, err := range []error{
		ValidateEmail(req.Email),
		ValidatePhoneNumber(req.PhoneNumber),
		ValidateTelegramUsername(req.TelegramUsername),
		ValidateWindow(req.TimeStart, req.TimeEnd),
	} {
		if err != nil {
			respond.JSONError(w, respond.NewValidationError(err.Error()))
			return
		}
	}

	pref := &models.ChannelPreference{
		UserID:           middleware.GetUserID(r.Context()),
		Kind:             kind,
		Email:            strings.TrimSpace(req.Email),
		PhoneNumber:      strings.TrimSpace(req.PhoneNumber),
		TelegramUsername: strings.TrimSpace(req.TelegramUsername),
		TimeStart:        strings.TrimSpace(req.TimeStart),
		TimeEnd:          strings.TrimSpace(req.TimeEnd),
		Enabled:          req.Enabled == nil || *req.Enabled,
	}
	stored, err := h.channels.Upsert(r.Context(), pref)
	if err != nil {
		respond.Internal(w, r, h.logger, "upsert channel", err)
		return
	}
	if stored == nil {
		respond.JSONError(w, respond.NewInconsistentStorage("channel was saved but cannot be read back"))
		return
	}
	respond.OK(w, stored)
}

// Delete removes the caller's preference for one channel.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	deleted, err := h.channels.Delete(ctx, middleware.GetUserID(ctx), kind)
	if err != nil {
		respond.Internal(w, r, h.logger, "delete channel", err)
		return
	}
	if !deleted {
		respond.JSONError(w, respond.NewNotFound("channel not configured"))
		return
	}
	respond.NoContent(w)
}

// ShouldSend reports whether an alert raised now would go out on the channel.
func (h *Handler) ShouldSend(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	send, err := h.checker.ShouldSendAlert(ctx, middleware.GetUserID(ctx), kind)
	if err != nil {
		respond.Internal(w, r, h.logger, "should send", err)
		return
	}
	respond.OK(w, ShouldSendResponse{Channel: kind, ShouldSend: send})
}

func kindParam(w http.ResponseWriter, r *http.Request) (models.ChannelKind, bool) {
	kind, ok := models.ParseChannelKind(chi.URLParam(r, "kind"))
	if !ok {
		respond.JSONError(w, respond.NewBadRequest("channel must be one of EMAIL, SMS, TELEGRAM"))
		return "", false
	}
	return kind, true
}
