package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// JanitorConfig holds configuration for the retention janitor
type JanitorConfig struct {
	// Interval defines how often finished tasks are swept.
	// If zero, defaults to one hour.
	Interval time.Duration

	// Retention is how long a finished task and its result are kept
	// after completion. If zero, defaults to 24 hours.
	Retention time.Duration
}

// DefaultJanitorConfig returns a JanitorConfig with reasonable defaults
func DefaultJanitorConfig() JanitorConfig {
	return JanitorConfig{
		Interval:  time.Hour,
		Retention: 24 * time.Hour,
	}
}

// Janitor periodically deletes finished tasks, and their result files, once
// they are older than the retention window. It only uses the runner's public
// operations, so the worker is unaffected by sweeps.
type Janitor struct {
	runner *TaskRunner
	config JanitorConfig
	logger *slog.Logger

	mu         sync.Mutex
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// NewJanitor creates a Janitor for runner.
func NewJanitor(runner *TaskRunner, config JanitorConfig, logger *slog.Logger) *Janitor {
	if config.Interval <= 0 {
		config.Interval = time.Hour
	}
	if config.Retention <= 0 {
		config.Retention = 24 * time.Hour
	}
	return &Janitor{
		runner: runner,
		config: config,
		logger: logger.With("component", "task_janitor"),
	}
}

// Start launches the sweep loop. Calling Start on a running janitor is a no-op.
func (j *Janitor) Start() {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.cancelFunc != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	j.cancelFunc = cancel

	j.wg.Add(1)
	go j.run(ctx)
}

// Stop ends the sweep loop and waits for it to exit.
func (j *Janitor) Stop() {
	j.mu.Lock()
	cancel := j.cancelFunc
	j.cancelFunc = nil
	j.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	j.wg.Wait()
}

func (j *Janitor) run(ctx context.Context) {
	defer j.wg.Done()

	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			j.Sweep(ctx, now.UTC())
		}
	}
}

// Sweep deletes every finished task that completed before now minus the
// retention window and returns how many were removed.
func (j *Janitor) Sweep(ctx context.Context, now time.Time) int {
	expired := j.runner.ListTasks(ListFilter{CompletedBefore: now.Add(-j.config.Retention)})

	removed := 0
	for _, t := range expired {
		if err := j.runner.DeleteTask(ctx, t.ID); err != nil {
			if !errors.Is(err, ErrTaskNotFound) {
				j.logger.Error("failed to delete expired task", "task_id", t.ID, "error", err)
			}
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.Info("removed expired tasks", "count", removed)
	}
	return removed
}
