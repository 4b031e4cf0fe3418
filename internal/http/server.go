// Package http provides the veritas HTTP API.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/veritas/internal/analysis"
	"github.com/fyrsmithlabs/veritas/internal/chat"
	"github.com/fyrsmithlabs/veritas/internal/geo"
	"github.com/fyrsmithlabs/veritas/internal/lang"
	"github.com/fyrsmithlabs/veritas/internal/logging"
	"github.com/fyrsmithlabs/veritas/internal/prompt"
)

// Analyzer runs the analyses behind the API.
type Analyzer interface {
	Verify(ctx context.Context, text string, l lang.Language, loc *geo.Location) (analysis.AnalysisResult, error)
	Check(ctx context.Context, text string, l lang.Language, loc *geo.Location) (analysis.ClaimReport, error)
	Deepfake(ctx context.Context, img prompt.Image, note string, l lang.Language) (analysis.DeepfakeResult, error)
	Virality(ctx context.Context, text string, l lang.Language) analysis.ViralityPrediction
}

// Server provides HTTP endpoints for veritas.
type Server struct {
	echo     *echo.Echo
	analyzer Analyzer
	chats    *chat.Store
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host      string
	Port      int
	BodyLimit string // e.g. "10M"
	Version   string
	Provider  string
	// Metrics enables the OpenTelemetry HTTP instruments.
	Metrics bool
}

// NewServer creates a new HTTP server.
func NewServer(analyzer Analyzer, chats *chat.Store, logger *logging.Logger, cfg *Config) (*Server, error) {
	if analyzer == nil {
		return nil, fmt.Errorf("analyzer cannot be nil")
	}
	if chats == nil {
		return nil, fmt.Errorf("chat store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "localhost",
			Port: 9191,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	if cfg.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.BodyLimit))
	}
	e.Use(requestLogger(logger))
	if cfg.Metrics {
		e.Use(NewHTTPMetrics(logger).MetricsMiddleware())
	}

	s := &Server{
		echo:     e,
		analyzer: analyzer,
		chats:    chats,
		logger:   logger,
		config:   cfg,
	}
	s.registerRoutes()

	return s, nil
}

// requestLogger puts the request ID and a logger on the request context and
// logs each request once it completes.
func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			ctx = logging.WithLogger(ctx, logger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			logger.Info(ctx, "http request",
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return nil
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.POST("/factcheck", s.handleFactCheck)
	v1.POST("/verify", s.handleVerify)
	v1.POST("/deepfake", s.handleDeepfake)
	v1.POST("/virality", s.handleVirality)

	sessions := v1.Group("/chat/sessions")
	sessions.POST("", s.handleCreateSession)
	sessions.GET("/:id", s.handleGetSession)
	sessions.DELETE("/:id", s.handleDeleteSession)
	sessions.POST("/:id/messages", s.handleSendMessage)
	sessions.PUT("/:id/language", s.handleSetLanguage)
}

// handleHealth returns a simple health check response.
func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:       "ok",
		Version:      s.config.Version,
		Provider:     s.config.Provider,
		ChatSessions: s.chats.Len(),
	})
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
