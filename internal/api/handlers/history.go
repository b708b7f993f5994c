package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cozil/cozil-backend/internal/api/middleware"
	"github.com/cozil/cozil-backend/internal/audit"
)

const defaultActivityLimit = 50

// History handles GET /api/history
func (h *ChatHandler) History(c *fiber.Ctx) error {
	records, err := h.chat.History(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		h.logger.WithError(err).Error("Failed to load history")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Message: "Could not load history"})
	}
	return c.JSON(fiber.Map{
		"success":       true,
		"conversations": records,
	})
}

// Activity handles GET /api/activity
func Activity(auditService *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", defaultActivityLimit)
		if limit <= 0 || limit > 500 {
			limit = defaultActivityLimit
		}

		events, err := auditService.GetUserEvents(c.UserContext(), middleware.CurrentUser(c).UserID, limit)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Message: "Could not load activity"})
		}
		return c.JSON(fiber.Map{
			"success": true,
			"events":  events,
		})
	}
}
