package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inboxiq/config"
	"inboxiq/internal/bootstrap"
	"inboxiq/pkg/logger"

	"github.com/joho/godotenv"
)

const (
	shutdownTimeout = 30 * time.Second // Maximum time to wait for graceful shutdown
)

func main() {
	// Load .env file if exists (for local development)
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config: %v", err)
	}

	level := logger.ParseLevel(cfg.LogLevel)
	if cfg.IsDevelopment() {
		level = logger.LevelDebug
	}
	logger.Init(logger.Config{
		Level:   level,
		Service: "inboxiq-api",
		Pretty:  cfg.IsDevelopment(),
	})
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}

	runAPI(cfg)
}

func runAPI(cfg *config.Config) {
	app, cleanup, err := bootstrap.NewAPI(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize API: %v", err)
	}
	defer cleanup()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down API server (timeout: %v)...", shutdownTimeout)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			logger.Error("Error shutting down: %v", err)
			return
		}
		logger.Info("API server shut down gracefully")
	}()

	addr := ":" + cfg.Port
	logger.Info("Starting API server on %s", addr)
	if err := app.Listen(addr); err != nil {
		logger.Fatal("Failed to start server: %v", err)
	}
}
