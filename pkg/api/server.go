// Package api provides the HTTP probe API for performing handshakes
// against remote nodes on demand.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evanxg852000/p2p-handshake/pkg/wire"
)

// Server represents the HTTP probe API server
type Server struct {
	router     *gin.Engine
	config     *Config
	httpServer *http.Server
	registry   *prometheus.Registry
	metrics    *Metrics
}

// Config holds server configuration
type Config struct {
	Port           int
	EnableCORS     bool
	RateLimit      int // Requests per minute, per IP
	AgentName      string        // Agent name announced to probed nodes
	Version        wire.Version  // Version announced to probed nodes
	DefaultTimeout time.Duration // Applied when a request names none
	MaxTimeout     time.Duration // Upper bound on per-request timeouts
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		EnableCORS:     true,
		RateLimit:      60,
		AgentName:      "evan",
		Version:        wire.Version{Major: 3, Minor: 3, Patch: 6},
		DefaultTimeout: 30 * time.Second,
		MaxTimeout:     60 * time.Second,
	}
}

// NewServer creates a new HTTP probe API server
func NewServer(config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	// Set Gin to release mode for production
	gin.SetMode(gin.ReleaseMode)

	registry := prometheus.NewRegistry()
	server := &Server{
		router:   gin.New(),
		config:   config,
		registry: registry,
		metrics:  NewMetrics(registry),
	}

	server.setupMiddleware(config)
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware(config *Config) {
	if config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}
	s.router.Use(RateLimitMiddleware(config.RateLimit))
	s.router.Use(LoggingMiddleware())
	s.router.Use(gin.Recovery())
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/handshake", s.handleProbe)
		v1.GET("/health", s.handleHealth)
	}

	s.router.GET("/metrics", gin.WrapH(
		promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Port),
		Handler: s.router,
	}

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("probe api server: %w", err)
	}
	return nil
}

// Stop gracefully shuts down the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

// handleHealth handles GET /api/v1/health
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"agent":   s.config.AgentName,
		"version": s.config.Version.String(),
	})
}
