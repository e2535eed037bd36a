package api

import (
	"context"
	"maps"
	"slices"

	"github.com/gofiber/fiber/v2"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse reports every dependency check.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// handlePing returns a simple liveness response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleHealth runs every configured check. Any failure turns the response
// into a 503.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := HealthResponse{Status: "ok", Checks: map[string]string{}}

	for _, name := range slices.Sorted(maps.Keys(s.config.Checks)) {
		ctx, cancel := context.WithTimeout(c.UserContext(), s.config.CheckTimeout)
		err := s.config.Checks[name](ctx)
		cancel()

		if err != nil {
			s.logger.Warn("health check failed", "check", name, "error", err)
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	if resp.Status != "ok" {
		return c.Status(fiber.StatusServiceUnavailable).JSON(resp)
	}
	return c.JSON(resp)
}

// handleStats returns the ingestion outcome counters.
func (s *Server) handleStats(c *fiber.Ctx) error {
	if s.stats == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(ErrorResponse{Error: "stats not available"})
	}
	return c.JSON(s.stats.Snapshot())
}
