package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the database is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Health handles GET /api/health
func Health(db Pinger, model string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		status := "healthy"
		code := fiber.StatusOK
		if err := db.PingContext(c.UserContext()); err != nil {
			status = "degraded"
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{
			"status":  status,
			"service": "cozil-backend",
			"model":   model,
		})
	}
}
