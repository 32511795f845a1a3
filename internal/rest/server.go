// Copyright (c) 2026 VeilForms, Inc.
//
// This file is part of veilkey.
//
// veilkey is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@veilforms.com for commercial licensing options.

// Package rest implements the HTTP transport over the veilkey facade.
// Handlers are a thin translation layer: every decision about key
// material lives in the facade and below.
package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/veilforms/veilkey/pkg/adapters/logger"
	"github.com/veilforms/veilkey/pkg/metrics"
	"github.com/veilforms/veilkey/pkg/ratelimit"
	"github.com/veilforms/veilkey/pkg/veilkey"
)

// Server represents the REST API server.
type Server struct {
	server   *http.Server
	handlers *HandlerContext
	addr     string
	logger   logger.Logger

	metricsEnabled bool
	metricsPath    string
	healthPath     string
	limiter        *ratelimit.Limiter
}

// Config holds the REST server configuration.
type Config struct {
	// Host is the listen address (default: all interfaces)
	Host string

	// Port is the HTTP port to listen on (default: 8443)
	Port int

	// Service is the veilkey facade all handlers use
	Service *veilkey.Service

	// Version is the API version string
	Version string

	// Logger is the logging adapter (optional, defaults to slog)
	Logger logger.Logger

	// MetricsEnabled mounts the Prometheus endpoint
	MetricsEnabled bool

	// MetricsPath is the Prometheus endpoint path (default: /metrics)
	MetricsPath string

	// HealthPath is the health endpoint path (default: /health)
	HealthPath string

	// RateLimiter limits per-client API requests (optional)
	RateLimiter *ratelimit.Limiter

	// ReadTimeout is the maximum duration for reading the entire request
	ReadTimeout time.Duration

	// WriteTimeout is the maximum duration before timing out writes
	WriteTimeout time.Duration

	// IdleTimeout is the maximum amount of time to wait for the next request
	IdleTimeout time.Duration
}

// NewServer creates a new REST API server.
func NewServer(cfg *Config) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Service == nil {
		return nil, fmt.Errorf("service is required")
	}

	if cfg.Port == 0 {
		cfg.Port = 8443
	}
	if cfg.Version == "" {
		cfg.Version = "1.0.0"
	}
	if cfg.MetricsPath == "" {
		cfg.MetricsPath = "/metrics"
	}
	if cfg.HealthPath == "" {
		cfg.HealthPath = "/health"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 15 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 15 * time.Second
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 60 * time.Second
	}

	log := cfg.Logger
	if log == nil {
		log = logger.NewSlogAdapter(&logger.SlogConfig{
			Level: logger.LevelInfo,
		})
	}

	server := &Server{
		handlers:       NewHandlerContext(cfg.Service, cfg.Version),
		addr:           fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		logger:         log,
		metricsEnabled: cfg.MetricsEnabled,
		metricsPath:    cfg.MetricsPath,
		healthPath:     cfg.HealthPath,
		limiter:        cfg.RateLimiter,
	}

	router := server.setupRouter()

	server.server = &http.Server{
		Addr:         server.addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return server, nil
}

// setupRouter configures the chi router with all routes and middleware.
func (s *Server) setupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(s.RecoveryMiddleware())
	r.Use(s.CorrelationMiddleware())
	r.Use(s.LoggingMiddleware())
	r.Use(metrics.HTTPMiddleware)
	r.Use(CORSMiddleware)

	r.Get(s.healthPath, s.handlers.HealthHandler)
	r.Head(s.healthPath, s.handlers.HealthHandler)

	if s.metricsEnabled {
		r.Handle(s.metricsPath, promhttp.Handler())
	}

	r.Route("/api/forms/{formId}", func(r chi.Router) {
		if s.limiter != nil {
			r.Use(ratelimit.Middleware(s.limiter))
		}
		r.Post("/keys", s.handlers.CreateKeysHandler)
		r.Get("/download-key", s.handlers.DownloadKeyHandler)
		r.Post("/rotate", s.handlers.RotateKeysHandler)
		r.Get("/public-key", s.handlers.PublicKeyHandler)
		r.Get("/versions", s.handlers.ListVersionsHandler)
	})

	return r
}

// Handler returns the configured router, for tests driving the server
// through httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start starts the REST API server.
func (s *Server) Start() error {
	s.logger.Info("Starting HTTP server", logger.String("addr", s.addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}
	return nil
}

// Stop gracefully stops the REST API server.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Error("Failed to shutdown server", logger.Error(err))
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	s.logger.Info("Server stopped")
	return nil
}

// Addr returns the address the server listens on.
func (s *Server) Addr() string {
	return s.addr
}
