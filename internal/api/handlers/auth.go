package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/api/middleware"
	"github.com/cozil/cozil-backend/internal/audit"
	"github.com/cozil/cozil-backend/internal/auth"
	"github.com/cozil/cozil-backend/internal/models"
)

// RegisterRequest represents a registration request, sent as a form or JSON
type RegisterRequest struct {
	Username        string `json:"username" form:"username"`
	Password        string `json:"password" form:"password"`
	ConfirmPassword string `json:"confirmPassword" form:"confirmPassword"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// UserResponse wraps the account returned by the auth endpoints
type UserResponse struct {
	Success bool                `json:"success"`
	User    *models.UserContext `json:"user"`
}

// CookieOptions controls the session cookie
type CookieOptions struct {
	Name   string
	Secure bool
}

// AuthHandler serves registration, login and logout
type AuthHandler struct {
	auth   *auth.Service
	audit  *audit.Service
	cookie CookieOptions
	logger *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *auth.Service, auditService *audit.Service, cookie CookieOptions, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		audit:  auditService,
		cookie: cookie,
		logger: logger,
	}
}

// Register handles POST /register
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Message: "Invalid request body"})
	}

	user, err := h.auth.Register(c.UserContext(), req.Username, req.Password, req.ConfirmPassword)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrMissingFields), errors.Is(err, auth.ErrPasswordMismatch):
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Message: registerMessage(err)})
		case errors.Is(err, auth.ErrUsernameTaken):
			return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Message: "Username already taken"})
		}
		h.logger.WithError(err).Error("Registration failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Message: "Error creating account"})
	}

	h.record(c, audit.EventSignup, user)
	return c.Status(fiber.StatusCreated).JSON(UserResponse{Success: true, User: user.Context()})
}

func registerMessage(err error) string {
	if errors.Is(err, auth.ErrPasswordMismatch) {
		return "Passwords do not match"
	}
	return "Username and password are required"
}

// Login handles POST /login and sets the session cookie
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Message: "Invalid request body"})
	}

	user, token, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{Message: "Invalid credentials"})
		}
		h.logger.WithError(err).Error("Login failed")
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Message: "An error occurred"})
	}

	c.Cookie(&fiber.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Expires:  time.Now().Add(h.auth.SessionTTL()),
		HTTPOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	h.record(c, audit.EventLogin, user)
	return c.JSON(UserResponse{Success: true, User: user.Context()})
}

// Logout handles GET and POST /logout
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if user := middleware.CurrentUser(c); user != nil {
		userID := user.UserID
		event := audit.NewEvent(audit.EventLogout, &userID, c.IP(), c.Get(fiber.HeaderUserAgent))
		event.Resource = "auth"
		event.Result = "success"
		_ = h.audit.Log(c.UserContext(), event)
	}

	h.auth.Logout(c.Cookies(h.cookie.Name))
	c.ClearCookie(h.cookie.Name)
	return c.JSON(fiber.Map{"success": true})
}

// Me handles GET /api/me
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(UserResponse{Success: true, User: middleware.CurrentUser(c)})
}

func (h *AuthHandler) record(c *fiber.Ctx, eventType audit.EventType, user *models.User) {
	event := audit.NewEvent(eventType, &user.ID, c.IP(), c.Get(fiber.HeaderUserAgent))
	event.Resource = "auth"
	event.Result = "success"
	event.Metadata["username"] = user.Username
	_ = h.audit.Log(c.UserContext(), event)
}
