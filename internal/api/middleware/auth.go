package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/cozil/cozil-backend/internal/auth"
	"github.com/cozil/cozil-backend/internal/models"
)

// UserContextKey is the locals key holding the *models.UserContext of a signed-in request.
const UserContextKey = "user_context"

// Session resolves the session cookie into the current user. Requests without
// a valid session continue as guests.
func Session(authService *auth.Service, cookieName string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(cookieName)
		if token == "" {
			return c.Next()
		}

		user, err := authService.Authenticate(token)
		if err != nil {
			c.ClearCookie(cookieName)
			return c.Next()
		}

		c.Locals(UserContextKey, user)
		return c.Next()
	}
}

// AuthRequired rejects guests. It must run after Session.
func AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if CurrentUser(c) == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"success": false,
				"message": "Authentication required",
			})
		}
		return c.Next()
	}
}

// CurrentUser returns the signed-in user, or nil for guests
func CurrentUser(c *fiber.Ctx) *models.UserContext {
	if ctx := c.Locals(UserContextKey); ctx != nil {
		if userContext, ok := ctx.(*models.UserContext); ok {
			return userContext
		}
	}
	return nil
}
