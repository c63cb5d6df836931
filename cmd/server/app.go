package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sfzman/indextts-server/internal/config"
	"github.com/sfzman/indextts-server/internal/events"
	"github.com/sfzman/indextts-server/internal/metrics"
	"github.com/sfzman/indextts-server/internal/platform/gemini"
	"github.com/sfzman/indextts-server/internal/platform/inference"
	"github.com/sfzman/indextts-server/internal/redact"
	"github.com/sfzman/indextts-server/internal/storage"
	"github.com/sfzman/indextts-server/internal/task"
)

// engineProbeTimeout bounds the startup health check of the inference service.
const engineProbeTimeout = 10 * time.Second

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// File storage
	results    *storage.FileStore
	references *storage.FileStore

	// Event system
	eventEmitter *events.InMemoryEventEmitter
	metrics      *metrics.Metrics

	// Task handling
	taskRunner *task.TaskRunner
	janitor    *task.Janitor
}

// newApplication creates a new application instance with all dependencies
// initialized and the worker running. A synthesis engine that cannot be
// created leaves the server up in degraded mode, rejecting submissions.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.results, err = storage.NewFileStore(cfg.Storage.OutputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize result storage: %w", err)
	}
	app.references, err = storage.NewFileStore(cfg.Storage.ReferenceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize reference storage: %w", err)
	}

	app.taskRunner = task.NewTaskRunner(task.NewTaskStore(), app.results, task.TaskRunnerConfig{
		QueueSize:        cfg.Task.QueueSize,
		MaxActiveTasks:   cfg.Task.MaxActiveTasks,
		PollInterval:     cfg.Task.PollInterval(),
		DefaultReference: cfg.Engine.DefaultReference,
		ResultURLPrefix:  cfg.Storage.ResultURLPrefix,
	}, logger)

	// Lifecycle events feed the job counters
	app.metrics = metrics.NewMetrics()
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(app.metrics)
	app.taskRunner.SetEventEmitter(app.eventEmitter)

	engine, err := newEngine(ctx, cfg, logger)
	if err != nil {
		logger.Warn("synthesis engine unavailable, running in degraded mode",
			"backend", cfg.Engine.Backend,
			"error", redact.Error(err))
	} else {
		app.taskRunner.SetEngine(engine)
		logger.Info("synthesis engine initialized", "backend", cfg.Engine.Backend)
	}

	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	if cfg.Retention.Enabled {
		app.janitor = task.NewJanitor(app.taskRunner, task.JanitorConfig{
			Interval:  cfg.Retention.CleanupInterval(),
			Retention: cfg.Retention.ResultRetention(),
		}, logger)
		app.janitor.Start()
	}

	logger.Info("application initialized successfully",
		"output_dir", app.results.BasePath(),
		"reference_dir", app.references.BasePath(),
		"retention_enabled", cfg.Retention.Enabled)
	return app, nil
}

// newEngine builds the synthesis engine selected by cfg.Engine.Backend.
func newEngine(ctx context.Context, cfg *config.Config, logger *slog.Logger) (task.Engine, error) {
	switch cfg.Engine.Backend {
	case config.BackendHTTP:
		client, err := inference.NewClient(inference.Config{
			URL:           cfg.Inference.URL,
			Timeout:       cfg.Inference.Timeout(),
			PrivateKeyPEM: cfg.Inference.JWTPrivateKey,
			TokenLifetime: time.Duration(cfg.Inference.JWTExpireSeconds) * time.Second,
		}, logger)
		if err != nil {
			return nil, err
		}

		probeCtx, cancel := context.WithTimeout(ctx, engineProbeTimeout)
		defer cancel()
		if err := client.Ping(probeCtx); err != nil {
			return nil, fmt.Errorf("inference service is not reachable: %w", err)
		}
		return client, nil

	case config.BackendGemini:
		engine, err := gemini.NewEngine(ctx, logger.With("component", "gemini_engine"), gemini.Config{
			APIKey:     cfg.Gemini.APIKey,
			ModelName:  cfg.Gemini.ModelName,
			VoiceName:  cfg.Gemini.VoiceName,
			MaxRetries: cfg.Gemini.MaxRetries,
			RetryDelay: time.Duration(cfg.Gemini.RetryDelaySeconds) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		return engine, nil

	default:
		return nil, fmt.Errorf("unknown engine backend %q", cfg.Engine.Backend)
	}
}

// Run starts the application server, handling lifecycle and cleanup.
// It returns an error if the server fails to start or encounters problems.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup handles graceful shutdown of application resources. The janitor
// stops first so no sweep races the worker's final job.
func (app *application) cleanup() {
	if app.janitor != nil {
		app.janitor.Stop()
	}
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	app.logger.Info("application shutdown completed", "jobs", app.metrics.GetSnapshot())
}
