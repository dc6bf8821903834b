package http

import (
	"context"
	"time"

	"inboxiq/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type HealthHandler struct {
	checks  map[string]HealthCheck
	latency *metrics.LatencyRegistry
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks}
}

// WithLatency adds per-route latency summaries to /health.
func (h *HealthHandler) WithLatency(reg *metrics.LatencyRegistry) *HealthHandler {
	h.latency = reg
	return h
}

func (h *HealthHandler) Register(app fiber.Router) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if h.latency != nil {
		latency := make(map[string]any)
		for route, stats := range h.latency.AllStats() {
			latency[route] = stats.ToMap()
		}
		resp["latency"] = latency
	}
	return c.JSON(resp)
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.checks))
	allHealthy := true
	for name, check := range h.checks {
		if err := check(ctx); err != nil {
			checks[name] = "unhealthy: " + err.Error()
			allHealthy = false
			continue
		}
		checks[name] = "healthy"
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}
	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
