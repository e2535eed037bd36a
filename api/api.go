package api

import (
	"expvar"
	"log/slog"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/docmem/pkg/ingest"
)

// Server exposes liveness, health and outcome counters of the consumer.
type Server struct {
	config Config
	stats  *ingest.Stats
	logger *slog.Logger
	app    *fiber.App
}

// NewServer creates a new status server reading from stats.
func NewServer(config Config, stats *ingest.Stats, logger *slog.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	if config.CheckTimeout <= 0 {
		config.CheckTimeout = defaultCheckTimeout
	}

	s := &Server{
		config: config,
		stats:  stats,
		logger: logger,
		app:    app,
	}

	app.Get("/ping", s.handlePing)
	app.Get("/healthz", s.handleHealth)
	app.Get("/stats", s.handleStats)
	app.Get("/debug/vars", adaptor.HTTPHandler(expvar.Handler()))

	return s
}

// Run starts the status server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting status server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the status server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
