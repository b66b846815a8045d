// Command sweeper runs one guest-cart expiry pass and exits. Cron (or any
// external scheduler) owns the cadence.
package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/repository"
	"github.com/bhargavtamarapalli/FabricSpeaks-sub001/internal/sweeper"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	repo, err := repository.NewRepository(&repository.Credentials{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvInt("POSTGRES_PORT", 5432),
		User:     getEnv("POSTGRES_USER", "storefront"),
		Password: getEnv("POSTGRES_PASSWORD", "storefront"),
		DBName:   getEnv("POSTGRES_DB", "storefront"),
	})
	if err != nil {
		logger.Error("connecting to postgres", "error", err)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	deleted, err := sweeper.NewSweeper(repo, logger).Sweep(ctx, time.Now())
	if err != nil {
		logger.Error("sweep failed", "error", err)
		os.Exit(1)
	}
	logger.Info("sweep complete", "deleted", deleted)
}
