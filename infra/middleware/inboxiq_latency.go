package middleware

import (
	"time"

	"inboxiq/pkg/metrics"

	"github.com/gofiber/fiber/v2"
)

// Latency records request duration keyed by method and route pattern.
func Latency(reg *metrics.LatencyRegistry) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		reg.Record(c.Method()+" "+c.Route().Path, time.Since(start))
		return err
	}
}
