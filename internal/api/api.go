// Package api provides the HTTP REST API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hivewatch/alerts/internal/api/health"
	"github.com/hivewatch/alerts/internal/api/middleware"
	"github.com/hivewatch/alerts/internal/delivery"
	"github.com/hivewatch/alerts/internal/storage"
)

// Config contains HTTP API server configuration.
type Config struct {
	Address          string
	RateLimitPerUser int           // Requests per minute per caller
	MaxRetries       int           // Default cap for on-demand retry passes
	RequestTimeout   time.Duration // Upper bound for a single request
	Verbose          bool
}

// SetDefaults applies default values for missing configuration.
func (c *Config) SetDefaults() {
	if c.Address == "" {
		c.Address = ":8080"
	}
	if c.RateLimitPerUser == 0 {
		c.RateLimitPerUser = 120
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = delivery.DefaultMaxRetries
	}
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 60 * time.Second
	}
}

// Server is the HTTP API server.
type Server struct {
	config        *Config
	storage       storage.Storage
	engine        *delivery.Engine
	reconciler    *delivery.Reconciler
	logger        *slog.Logger
	limiter       *middleware.RateLimiter
	server        *http.Server
	healthHandler *health.Handler
}

// New creates a new API server.
func New(cfg *Config, store storage.Storage, engine *delivery.Engine, reconciler *delivery.Reconciler, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if engine == nil || reconciler == nil {
		return nil, fmt.Errorf("delivery engine and reconciler are required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg.SetDefaults()

	s := &Server{
		config:        cfg,
		storage:       store,
		engine:        engine,
		reconciler:    reconciler,
		logger:        logger.With("component", "api"),
		limiter:       middleware.NewRateLimiter(cfg.RateLimitPerUser),
		healthHandler: health.NewHandler(health.NewDatabaseChecker("database", store)),
	}

	s.server = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.setupRouter(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Run starts the HTTP server and blocks until context is canceled.
func (s *Server) Run(ctx context.Context) error {
	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP API listening", "address", s.config.Address)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP API server")
		s.limiter.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.limiter.Close()
		return err
	}
}

// Address returns the configured listen address.
func (s *Server) Address() string {
	return s.config.Address
}

// RegisterHealthChecker adds a readiness checker.
func (s *Server) RegisterHealthChecker(c health.Checker) {
	s.healthHandler.RegisterChecker(c)
}
