// File: internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"otp_reader/internal/config"
	"otp_reader/internal/jobs"
	"otp_reader/internal/middleware"
	"otp_reader/internal/reader"
	"otp_reader/internal/relay"
	"otp_reader/internal/session"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server struct holds the dependencies for the HTTP server.
type Server struct {
	httpServer *http.Server
	router     *gin.Engine
	cfg        *config.Config
	logger     *zap.Logger

	// Handlers
	readerHandler *reader.Handler
	relayHandler  *relay.Handler

	// Jobs
	sessionSweepJob *jobs.SessionSweepJob
}

// NewServer creates a new instance of our application server.
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	store *session.Store,
	readerHandler *reader.Handler,
	relayHandler *relay.Handler,
	sessionSweepJob *jobs.SessionSweepJob,
) (*Server, error) {
	gin.SetMode(cfg.GinMode)
	router := gin.New()
	router.HandleMethodNotAllowed = true

	tmpl, err := reader.Templates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	// --- Global Middleware ---
	router.Use(middleware.ZapLogger(logger, cfg))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSAllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Length", middleware.RequestIDHeader}
	// Credentialed CORS cannot be combined with a wildcard origin.
	corsConfig.AllowCredentials = !allowsAllOrigins(cfg.CORSAllowedOrigins)
	router.Use(cors.New(corsConfig))

	sessionMW := middleware.Session(store, cfg, logger.Named("SessionMiddleware"))

	// --- Setup Routes ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "OTP Reader is healthy!", "sessions": store.Len()})
	})

	readerHandler.RegisterPageRoutes(router, sessionMW)

	v1 := router.Group("/api/v1")
	readerHandler.RegisterRoutes(v1, sessionMW)
	relayHandler.RegisterRoutes(v1, sessionMW)

	addr := fmt.Sprintf("%s:%s", cfg.ServerHost, cfg.ServerPort)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer:      httpServer,
		router:          router,
		cfg:             cfg,
		logger:          logger,
		readerHandler:   readerHandler,
		relayHandler:    relayHandler,
		sessionSweepJob: sessionSweepJob,
	}, nil
}

func allowsAllOrigins(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	if s.sessionSweepJob != nil {
		if err := s.sessionSweepJob.SetupAndStart(); err != nil {
			s.logger.Error("Failed to setup and start session sweep job", zap.Error(err))
		}
	} else {
		s.logger.Info("Session sweep job is not configured, skipping start.")
	}

	s.logger.Info("HTTP Server starting",
		zap.String("address", s.httpServer.Addr),
		zap.String("gin_mode", s.cfg.GinMode),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		s.logger.Error("Failed to start HTTP server", zap.Error(err))
		return err
	}
	s.logger.Info("HTTP Server stopped gracefully or an error occurred")
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Attempting graceful server shutdown...")
	if s.sessionSweepJob != nil {
		s.sessionSweepJob.Stop()
	}
	return s.httpServer.Shutdown(ctx)
}
