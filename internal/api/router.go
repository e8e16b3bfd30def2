package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/hivewatch/alerts/internal/api/alerts"
	"github.com/hivewatch/alerts/internal/api/channels"
	"github.com/hivewatch/alerts/internal/api/deliveries"
	"github.com/hivewatch/alerts/internal/api/middleware"
	"github.com/hivewatch/alerts/internal/api/respond"
	"github.com/hivewatch/alerts/internal/api/rules"
)

// setupRouter creates and configures the chi router with all routes.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogger(s.logger, s.config.Verbose))
	r.Use(middleware.PrometheusMiddleware)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.Recoverer(s.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.JSONError(w, respond.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.JSONError(w, &respond.Error{
			Code:    respond.CodeBadRequest,
			Message: "Method not allowed",
			Status:  http.StatusMethodNotAllowed,
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireUser)
		r.Use(middleware.RateLimitByUser(s.limiter))
		r.Use(chimw.Timeout(s.config.RequestTimeout))

		alertHandler := alerts.NewHandler(s.storage, s.engine, s.logger)
		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", alertHandler.List)
			r.Post("/", alertHandler.Create)
			r.Get("/{id}/deliveries", alertHandler.Deliveries)
		})

		channelHandler := channels.NewHandler(s.storage.Channels(), s.engine, s.logger)
		r.Route("/channels", func(r chi.Router) {
			r.Get("/", channelHandler.List)
			r.Route("/{kind}", func(r chi.Router) {
				r.Get("/", channelHandler.Get)
				r.Put("/", channelHandler.Put)
				r.Delete("/", channelHandler.Delete)
				r.Get("/should-send", channelHandler.ShouldSend)
			})
		})

		ruleHandler := rules.NewHandler(s.storage.Rules(), s.logger)
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", ruleHandler.List)
			r.Post("/", ruleHandler.Create)
			r.Put("/{id}", ruleHandler.Update)
			r.Delete("/{id}", ruleHandler.Delete)
		})

		deliveryHandler := deliveries.NewHandler(s.reconciler, s.config.MaxRetries, s.logger)
		r.Post("/deliveries/retry", deliveryHandler.Retry)
	})

	// Health checks (public, no rate limit)
	r.Get("/health", s.healthHandler.Hello)
	r.Get("/health/live", s.healthHandler.Live)
	r.Get("/health/ready", s.healthHandler.Ready)

	return r
}
