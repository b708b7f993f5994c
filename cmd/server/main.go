package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/api"
	"github.com/cozil/cozil-backend/internal/audit"
	"github.com/cozil/cozil-backend/internal/auth"
	"github.com/cozil/cozil-backend/internal/config"
	"github.com/cozil/cozil-backend/internal/database"
	"github.com/cozil/cozil-backend/internal/extractor"
	"github.com/cozil/cozil-backend/internal/llm"
	"github.com/cozil/cozil-backend/internal/logging"
	"github.com/cozil/cozil-backend/internal/repository/sqlstore"
	"github.com/cozil/cozil-backend/internal/services"
)

func main() {
	configPath := flag.String("config", "", "Path to config.json")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.New(config.LogConfig{}).WithError(err).Fatal("Failed to load configuration")
	}
	log := logging.New(cfg.Log)

	if cfg.Session.Secret == config.DefaultSessionSecret {
		log.Warn("Using the default session secret. Set SESSION_SECRET in production!")
	}
	if cfg.LLM.APIKey == "" {
		log.Warn("GEMINI_API_KEY is not set; chat requests will fail")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(db); err != nil {
		log.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize repositories
	userRepo := sqlstore.NewUserRepository(db.DB)
	conversationRepo := sqlstore.NewConversationRepository(db.DB)
	auditLogRepo := sqlstore.NewAuditLogRepository(db.DB)

	auditService := audit.NewService(auditLogRepo, log)
	authService := auth.NewService(userRepo, auth.Options{
		SessionSecret: cfg.Session.Secret,
		SessionTTL:    cfg.Session.TTL,
		BcryptCost:    cfg.Auth.BcryptCost,
	}, log)

	gateway := llm.NewGateway(cfg.LLM.Gateway(), log)
	chatService := services.NewChatService(gateway, extractor.New(log), conversationRepo, auditService, log)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Cozil",
		ErrorHandler: api.ErrorHandler(log),
		BodyLimit:    cfg.Uploads.MaxBytes,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{Output: log.Writer()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept",
		AllowMethods:     "GET, POST, OPTIONS",
		AllowCredentials: true,
	}))

	api.SetupRoutes(app, api.Dependencies{
		Config: cfg,
		Auth:   authService,
		Audit:  auditService,
		Chat:   chatService,
		DB:     db,
		Logger: log,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		_ = app.Shutdown()
	}()

	log.WithFields(logrus.Fields{
		"addr":   cfg.Server.Addr(),
		"driver": db.Driver(),
		"model":  gateway.Model(),
	}).Info("Cozil server starting")
	if err := app.Listen(cfg.Server.Addr()); err != nil {
		log.WithError(err).Fatal("Failed to start server")
	}
}
