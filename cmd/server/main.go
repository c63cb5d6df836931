// Package main implements the entry point for the IndexTTS server, which
// accepts speech synthesis jobs over HTTP and runs them on a single
// background worker.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sfzman/indextts-server/internal/config"
	"github.com/sfzman/indextts-server/internal/platform/logger"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "indextts-server: %v\n", err)
		os.Exit(1)
	}
}

// run loads configuration, sets up logging, builds the application and
// serves until a shutdown signal arrives.
func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	l, err := logger.Setup(logger.LoggerConfig{Level: cfg.Server.LogLevel})
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}

	l.Info("server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"engine_backend", cfg.Engine.Backend,
		"queue_size", cfg.Task.QueueSize)

	app, err := newApplication(ctx, cfg, l)
	if err != nil {
		return fmt.Errorf("failed to initialize application: %w", err)
	}

	return app.Run(ctx)
}
