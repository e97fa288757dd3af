// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package survey assembles the car survey HTTP service.
//
// # Description
//
// The service hosts independent form sessions over a JSON API. Each session
// is a form.Controller held in a form.Registry; idle sessions are swept in
// the background.
//
// # Architecture
//
//	HTTP ──► gin (otelgin, request ID, rate limit, access log)
//	           │
//	           ▼
//	       handlers ──► form.Registry ──► form.Controller
//	                                        │
//	                                        ├─► constraints (reconcile)
//	                                        ├─► validation
//	                                        └─► Saver (simulated save)
package survey

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/CarSurvey/services/survey/form"
	"github.com/AleutianAI/CarSurvey/services/survey/handlers"
	"github.com/AleutianAI/CarSurvey/services/survey/middleware"
	"github.com/AleutianAI/CarSurvey/services/survey/observability"
	"github.com/AleutianAI/CarSurvey/services/survey/routes"
	"github.com/AleutianAI/CarSurvey/services/survey/telemetry"
)

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the survey service.
//
// # Thread Safety
//
// Run blocks and should only be called once per instance.
type Service interface {
	// Run serves HTTP and sweeps idle sessions until ctx is done, then shuts
	// the server down gracefully.
	//
	// # Outputs
	//
	//   - error: Non-nil if the server fails. A clean shutdown returns nil.
	Run(ctx context.Context) error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Registry returns the session registry.
	Registry() *form.Registry
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds survey service configuration.
//
// # Description
//
// All fields are optional; New applies defaults to zero values.
//
// # Examples
//
//	svc, err := survey.New(survey.Config{Port: 8080, SaveLatency: time.Second}, logger)
type Config struct {
	// Port is the HTTP server port. Default: 12400
	Port int

	// GinMode is "release", "debug" or "test". Default: release
	GinMode string

	// SaveLatency is the simulated save delay. Default: 1s
	SaveLatency time.Duration

	// MaxSessions caps live form sessions. Default: form.DefaultMaxSessions
	MaxSessions int

	// IdleTTL evicts sessions unused for this long. Default: form.DefaultIdleTTL
	IdleTTL time.Duration

	// SweepInterval is how often idle sessions are swept. Default: 1m
	SweepInterval time.Duration

	// RateLimitRPS is the sustained request rate. Zero disables limiting.
	RateLimitRPS float64

	// RateLimitBurst is the token bucket size.
	RateLimitBurst int

	// ShutdownTimeout bounds graceful shutdown. Default: 10s
	ShutdownTimeout time.Duration

	// Telemetry configures tracing.
	Telemetry telemetry.Config

	// Metrics overrides the process-wide metrics, mainly for tests.
	Metrics *observability.SurveyMetrics
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12400
	}
	if cfg.GinMode == "" {
		cfg.GinMode = gin.ReleaseMode
	}
	if cfg.SaveLatency == 0 {
		cfg.SaveLatency = form.DefaultSaveLatency
	}
	if cfg.MaxSessions == 0 {
		cfg.MaxSessions = form.DefaultMaxSessions
	}
	if cfg.IdleTTL == 0 {
		cfg.IdleTTL = form.DefaultIdleTTL
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = form.DefaultSweepInterval
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "carsurvey"
	}
	return cfg
}

// =============================================================================
// Implementation
// =============================================================================

type service struct {
	config   Config
	logger   *slog.Logger
	router   *gin.Engine
	registry *form.Registry
	shutdown func(context.Context) error
}

// New creates a fully initialized survey service.
//
// # Description
//
// Initializes tracing, metrics, the session registry and the router. The
// returned service is ready for Run.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values get defaults.
//   - logger: Structured logger. Nil means slog.Default().
//
// # Outputs
//
//   - Service: Ready to run.
//   - error: Non-nil if tracing cannot be initialized.
func New(cfg Config, logger *slog.Logger) (Service, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &service{
		config: applyConfigDefaults(cfg),
		logger: logger,
	}

	shutdown, err := telemetry.Init(context.Background(), s.config.Telemetry)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.shutdown = shutdown

	metrics := s.config.Metrics
	if metrics == nil {
		if observability.DefaultMetrics == nil {
			observability.InitMetrics()
			logger.Info("Initialized Prometheus metrics")
		}
		metrics = observability.DefaultMetrics
	}

	s.registry = form.NewRegistry(form.RegistryConfig{
		MaxSessions: s.config.MaxSessions,
		IdleTTL:     s.config.IdleTTL,
		Saver:       form.DelaySaver{Latency: s.config.SaveLatency},
		Metrics:     metrics,
		Logger:      logger,
	})

	s.initRouter()
	return s, nil
}

// Run serves until ctx is done.
func (s *service) Run(ctx context.Context) error {
	defer s.cleanup()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("Starting survey server", "port", s.config.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		err := s.registry.RunSweeper(gctx, s.config.SweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
		defer cancel()
		s.logger.Info("Shutting down survey server")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine { return s.router }

// Registry returns the session registry.
func (s *service) Registry() *form.Registry { return s.registry }

// initRouter builds the Gin engine with middleware and routes.
func (s *service) initRouter() {
	gin.SetMode(s.config.GinMode)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		otelgin.Middleware(s.config.Telemetry.ServiceName),
		middleware.RequestID(),
		middleware.RateLimit(s.config.RateLimitRPS, s.config.RateLimitBurst),
		middleware.RequestLogger(s.logger),
	)
	routes.SetupRoutes(router, handlers.NewHandlers(s.registry, s.logger))
	s.router = router
}

// cleanup flushes telemetry.
func (s *service) cleanup() {
	if s.shutdown == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown telemetry", "error", err)
	}
}
