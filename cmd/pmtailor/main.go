package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pmtailor/internal/cli"
	"pmtailor/internal/config"
	"pmtailor/internal/errors"
)

func run() error {
	// Cancel the root context on SIGINT/SIGTERM so long-running
	// commands (serve, remote fetches) shut down cleanly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := errors.New(cfg.App.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("Starting pmtailor",
		"version", cli.Version,
		"log_level", cfg.App.LogLevel,
		"min_relevance_score", cfg.Engine.MinRelevanceScore)

	return cli.Execute(ctx, cfg, logger)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
