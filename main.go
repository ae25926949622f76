package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/civic-spark/rewards-backend/app"
	"github.com/civic-spark/rewards-backend/config"
	"github.com/civic-spark/rewards-backend/internal/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	obs, err := observability.Init(ctx, observability.Config{
		ServiceName:     "rewards-backend",
		Environment:     cfg.Observability.Environment,
		LogLevel:        cfg.Observability.LogLevel,
		OTLPEndpoint:    cfg.Observability.OTLPEndpoint,
		OTLPTransport:   cfg.Observability.OTLPTransport,
		TraceSampleRate: cfg.Observability.TraceSampleRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize observability: %v", err)
	}

	application, err := app.NewApp(ctx, cfg, obs)
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Run(ctx)
	}()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	logger := obs.Provider.Logger
	select {
	case <-interrupt:
		logger.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("Application stopped with error", "error", err)
		}
	}

	cancel()
	if err := application.Close(); err != nil {
		logger.Error("Shutdown error", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := obs.Shutdown(shutdownCtx); err != nil {
		logger.Error("Failed to shut down tracing", "error", err)
	}

	logger.Info("Application shut down gracefully")
}
