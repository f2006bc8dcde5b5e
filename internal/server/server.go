// Package server exposes the candle aggregator over HTTP.
//
// The package is organised as follows:
//   - server.go: Server type, routing and lifecycle
//   - handler.go: HTTP request handlers
//   - middleware.go: request id and access logging
//   - validator.go: query validation
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"candleservice/config"
	"candleservice/internal/aggregator"
	"candleservice/internal/memorystore"
	"candleservice/internal/metrics"
	"candleservice/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ServiceVersion      = "1.0.0"
	RequestIDContextKey = "request_id"
	RequestIDHeaderKey  = "X-Request-ID"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

// Server serves candle queries from the snapshot held by a memorystore.Store.
type Server struct {
	cfg        config.ServerConfig
	store      *memorystore.Store
	agg        *aggregator.Aggregator
	metrics    *metrics.Metrics
	validator  *Validator
	logger     *zap.Logger
	httpServer *http.Server

	sourceHealth HealthChecker
}

// New creates a server. A nil metrics disables /metrics and query metrics.
func New(cfg config.ServerConfig, store *memorystore.Store, agg *aggregator.Aggregator, m *metrics.Metrics, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	v, err := NewValidator(cfg.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	s := &Server{
		cfg:       cfg,
		store:     store,
		agg:       agg,
		metrics:   m,
		validator: v,
		logger:    log.With(zap.String("component", "http")),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.SetupRoutes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// SetSourceHealth makes /health report the tick source and answer 503 while
// it is unreachable.
func (s *Server) SetSourceHealth(h HealthChecker) {
	s.sourceHealth = h
}

// SetupRoutes configures all API routes.
func (s *Server) SetupRoutes() *gin.Engine {
	router := gin.New()

	router.Use(requestIDMiddleware())
	router.Use(accessLogMiddleware(s.logger))
	router.Use(gin.CustomRecovery(s.recover))

	router.GET("/candle", s.GetCandle)
	router.PUT("/flag", s.PutFlag)
	router.GET("/stats", s.GetStats)
	router.GET("/health", s.HealthCheck)
	if s.metrics != nil {
		router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	return router
}

// Start listens on cfg.Addr and blocks until the server stops. It returns
// nil after a Shutdown.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", zap.String("addr", s.cfg.Addr), zap.String("service", logger.ServiceName))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones, bounded by
// cfg.ShutdownTimeout.
func (s *Server) Shutdown(ctx context.Context) error {
	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
