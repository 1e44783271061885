package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/astacala/rescue-api/internal/config"
	"github.com/astacala/rescue-api/internal/database"
	"github.com/astacala/rescue-api/internal/repository"
	"github.com/astacala/rescue-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("command", "seed").Logger()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := database.Migrate(db); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	seeder := service.NewSeedService(repository.NewUserRepository(db), repository.NewReportRepository(db), service.SeedOptions{
		AdminEmail:    cfg.SeedAdminEmail,
		AdminPassword: cfg.SeedAdminPassword,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := seeder.Seed(ctx); err != nil {
		logger.Error().Err(err).Msg("seed failed")
		os.Exit(1)
	}
}
