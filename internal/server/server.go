// Package server provides the HTTP server for the streamin application.
package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/mantonx/streamin/internal/config"
	"github.com/mantonx/streamin/internal/middleware"
)

// Server wraps the gin engine in an http.Server with graceful shutdown.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
	logger     hclog.Logger
}

// SetupRouter returns an engine with recovery, CORS, request logging and
// the health route installed.
func SetupRouter(logger hclog.Logger, pinger Pinger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.CORS(), middleware.RequestLogger(logger), middleware.ErrorLogger(logger))

	r.GET("/health", HandleHealthCheck(pinger))
	r.GET("/api/v1/health", HandleHealthCheck(pinger))
	return r
}

// New creates a server listening on cfg's address.
func New(cfg config.ServerConfig, engine *gin.Engine, logger hclog.Logger) *Server {
	return &Server{
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.Addr(),
			Handler:      engine,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger.Named("server"),
	}
}

// Engine returns the router.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
