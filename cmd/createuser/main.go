package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/cozil/cozil-backend/internal/auth"
	"github.com/cozil/cozil-backend/internal/config"
	"github.com/cozil/cozil-backend/internal/database"
	"github.com/cozil/cozil-backend/internal/models"
	"github.com/cozil/cozil-backend/internal/repository/sqlstore"
)

func main() {
	// Parse command line flags
	var (
		configPath = flag.String("config", "", "Path to config.json")
		username   = flag.String("username", "", "Username")
		password   = flag.String("password", "", "User password")
	)
	flag.Parse()

	if *username == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: createuser -username NAME -password PASS [-config FILE]")
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Generate password hash
	hash, err := auth.HashPassword(*password, cfg.Auth.BcryptCost)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to generate password hash")
	}

	user := &models.User{
		ID:           uuid.New(),
		Username:     *username,
		PasswordHash: hash,
		CreatedAt:    models.Now(),
	}
	if err := sqlstore.NewUserRepository(db.DB).Create(context.Background(), user); err != nil {
		logrus.WithError(err).Fatal("Failed to create user")
	}

	fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
}
