package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/api/handlers"
	"github.com/cozil/cozil-backend/internal/api/middleware"
	"github.com/cozil/cozil-backend/internal/audit"
	"github.com/cozil/cozil-backend/internal/auth"
	"github.com/cozil/cozil-backend/internal/config"
	"github.com/cozil/cozil-backend/internal/services"
)

// Dependencies are the services the HTTP layer is built on
type Dependencies struct {
	Config *config.Config
	Auth   *auth.Service
	Audit  *audit.Service
	Chat   *services.ChatService
	DB     handlers.Pinger
	Logger *logrus.Logger
}

// SetupRoutes configures all routes
func SetupRoutes(app *fiber.App, deps Dependencies) {
	cfg := deps.Config
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Audit, handlers.CookieOptions{
		Name:   cfg.Session.CookieName,
		Secure: cfg.Session.Secure,
	}, deps.Logger)
	chatHandler := handlers.NewChatHandler(deps.Chat, cfg.Uploads.Dir, int64(cfg.Uploads.MaxBytes), deps.Logger)

	// Every request carries the current user, or none for guests
	app.Use(middleware.Session(deps.Auth, cfg.Session.CookieName))

	app.Post("/register", middleware.SignupRateLimit(), authHandler.Register)
	app.Post("/login", middleware.AuthRateLimit(), authHandler.Login)
	app.Get("/logout", authHandler.Logout)
	app.Post("/logout", authHandler.Logout)

	api := app.Group("/api")
	api.Get("/health", handlers.Health(deps.DB, cfg.LLM.Model))
	api.Post("/chat", chatHandler.Chat)

	// Authenticated
	api.Get("/me", middleware.AuthRequired(), authHandler.Me)
	api.Get("/history", middleware.AuthRequired(), chatHandler.History)
	api.Get("/activity", middleware.AuthRequired(), handlers.Activity(deps.Audit))

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals(handlers.LocalIP, c.IP())
			c.Locals(handlers.LocalUserAgent, c.Get(fiber.HeaderUserAgent))
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/chat", websocket.New(chatHandler.StreamChat))

	if cfg.Server.StaticDir != "" {
		app.Static("/", cfg.Server.StaticDir)
	}
}

// ErrorHandler renders unhandled errors in the flat failure shape
func ErrorHandler(logger *logrus.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := handlers.MessageChatFailed

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.WithError(err).WithField("path", c.Path()).Error("Unhandled error")
		}

		return c.Status(code).JSON(handlers.ErrorResponse{Message: message})
	}
}
