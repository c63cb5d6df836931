package task

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	waitTimeout = 5 * time.Second
	waitTick    = 5 * time.Millisecond
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// dirResults is a ResultStore backed by a temporary directory.
type dirResults struct {
	dir string

	mu      sync.Mutex
	removed []uuid.UUID
}

func newDirResults(t *testing.T) *dirResults {
	return &dirResults{dir: t.TempDir()}
}

func (d *dirResults) ResultFilename(id uuid.UUID) string {
	return id.String() + ".wav"
}

func (d *dirResults) ResultPath(id uuid.UUID) string {
	return filepath.Join(d.dir, d.ResultFilename(id))
}

func (d *dirResults) Remove(id uuid.UUID) error {
	d.mu.Lock()
	d.removed = append(d.removed, id)
	d.mu.Unlock()

	if err := os.Remove(d.ResultPath(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (d *dirResults) removedCount(id uuid.UUID) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, r := range d.removed {
		if r == id {
			n++
		}
	}
	return n
}

// writeEngine writes a small payload to the output path and returns.
func writeEngine() Engine {
	return EngineFunc(func(ctx context.Context, req InferRequest) error {
		return os.WriteFile(req.OutputPath, []byte("RIFF"), 0o644)
	})
}

// gatedEngine blocks every inference until release is closed and records
// the requests it received in order.
type gatedEngine struct {
	started chan uuid.UUID
	release chan struct{}

	mu    sync.Mutex
	calls []InferRequest
}

func newGatedEngine() *gatedEngine {
	return &gatedEngine{
		started: make(chan uuid.UUID, 100),
		release: make(chan struct{}),
	}
}

func (e *gatedEngine) Infer(ctx context.Context, req InferRequest) error {
	e.mu.Lock()
	e.calls = append(e.calls, req)
	e.mu.Unlock()

	e.started <- req.TaskID
	<-e.release
	return os.WriteFile(req.OutputPath, []byte("RIFF"), 0o644)
}

func (e *gatedEngine) callIDs() []uuid.UUID {
	e.mu.Lock()
	defer e.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(e.calls))
	for _, c := range e.calls {
		ids = append(ids, c.TaskID)
	}
	return ids
}

func (e *gatedEngine) waitStarted(t *testing.T) uuid.UUID {
	t.Helper()
	select {
	case id := <-e.started:
		return id
	case <-time.After(waitTimeout):
		t.Fatal("engine was not invoked in time")
		return uuid.Nil
	}
}

func testRunnerConfig() TaskRunnerConfig {
	config := DefaultTaskRunnerConfig()
	config.PollInterval = 10 * time.Millisecond
	return config
}

// startRunner builds and starts a runner that is stopped on test cleanup.
func startRunner(t *testing.T, config TaskRunnerConfig, engine Engine) (*TaskRunner, *TaskStore, *dirResults) {
	t.Helper()

	store := NewTaskStore()
	results := newDirResults(t)
	runner := NewTaskRunner(store, results, config, setupTestLogger())
	if engine != nil {
		runner.SetEngine(engine)
	}
	require.NoError(t, runner.Start())
	t.Cleanup(runner.Stop)

	return runner, store, results
}

func waitForStatus(t *testing.T, runner *TaskRunner, id uuid.UUID, status TaskStatus) Task {
	t.Helper()

	var last Task
	require.Eventually(t, func() bool {
		got, ok := runner.GetTask(id)
		if !ok {
			return false
		}
		last = got
		return got.Status == status
	}, waitTimeout, waitTick, "task %s never reached status %s", id, status)

	return last
}
