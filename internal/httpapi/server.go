// Package httpapi provides the HTTP API for agentd.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/audit"
	"github.com/fyrsmithlabs/agentd/internal/orchestrator"
)

// MessageHandler processes one user message through the action pipeline.
// Satisfied by the orchestrator; faked in tests.
type MessageHandler interface {
	Handle(ctx context.Context, userMessage string) (*orchestrator.Response, error)
}

// Server provides HTTP endpoints for agentd.
type Server struct {
	echo     *echo.Echo
	handler  MessageHandler
	auditLog *audit.Log
	registry prometheus.Gatherer
	logger   *zap.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates a new HTTP server. registry may be nil to disable
// the metrics endpoint.
func NewServer(handler MessageHandler, auditLog *audit.Log, registry prometheus.Gatherer, logger *zap.Logger, cfg *Config) (*Server, error) {
	if handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 8880,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		handler:  handler,
		auditLog: auditLog,
		registry: registry,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	if s.registry != nil {
		s.echo.GET("/metrics", echo.WrapHandler(
			promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}),
		))
	}

	v1 := s.echo.Group("/api/v1")
	v1.POST("/messages", s.handleMessage)
	v1.GET("/audit", s.handleAudit)
}

// MessageRequest is the request body for POST /api/v1/messages.
type MessageRequest struct {
	Message string `json:"message"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

// AuditResponse is the response body for GET /api/v1/audit.
type AuditResponse struct {
	Records []audit.Record `json:"records"`
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleMessage runs one user message through the pipeline and returns
// the composed summary plus per-action results.
func (s *Server) handleMessage(c echo.Context) error {
	var req MessageRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid message request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.Message == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message field is required")
	}

	resp, err := s.handler.Handle(c.Request().Context(), req.Message)
	if err != nil {
		s.logger.Error("message handling failed", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadGateway, "completion backend unavailable")
	}

	return c.JSON(http.StatusOK, resp)
}

// handleAudit returns recent audit records, newest last.
func (s *Server) handleAudit(c echo.Context) error {
	if s.auditLog == nil {
		return echo.NewHTTPError(http.StatusNotFound, "audit log not enabled")
	}

	limit := 100
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	return c.JSON(http.StatusOK, AuditResponse{Records: s.auditLog.Recent(limit)})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
