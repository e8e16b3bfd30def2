// Package health provides health check endpoints for the API.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Checker defines the interface for health checkers.
type Checker interface {
	Name() string
	Check(ctx context.Context) error
}

// Handler manages health check endpoints.
type Handler struct {
	mu       sync.RWMutex
	checkers []Checker
	timeout  time.Duration
}

// NewHandler creates a new health handler.
func NewHandler(checkers ...Checker) *Handler {
	return &Handler{
		checkers: checkers,
		timeout:  5 * time.Second,
	}
}

// RegisterChecker adds a dependency checker.
func (h *Handler) RegisterChecker(c Checker) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checkers = append(h.checkers, c)
}

// Response represents the liveness and readiness body.
type Response struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Hello answers the legacy /health probe that load balancers poll.
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"hello": "world"})
}

// Live returns 200 while the process is running.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Response{Status: "live"})
}

// Ready runs every registered checker concurrently and returns 200 only if
// all of them pass.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	h.mu.RLock()
	checkers := make([]Checker, len(h.checkers))
	copy(checkers, h.checkers)
	h.mu.RUnlock()

	var (
		mu         sync.Mutex
		results    = make(map[string]string, len(checkers))
		allHealthy = true
	)

	var g errgroup.Group
	for _, checker := range checkers {
		g.Go(func() error {
			err := checker.Check(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				results[checker.Name()] = err.Error()
				allHealthy = false
			} else {
				results[checker.Name()] = "ok"
			}
			return nil
		})
	}
	_ = g.Wait()

	resp := Response{Status: "ready", Checks: results}
	status := http.StatusOK
	if !allHealthy {
		resp.Status = "not_ready"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
