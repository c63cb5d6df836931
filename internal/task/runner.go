package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sfzman/indextts-server/internal/events"
)

// TaskRunnerConfig holds configuration for the task runner
type TaskRunnerConfig struct {
	// QueueSize determines the buffer size for the in-memory task queue
	QueueSize int

	// MaxActiveTasks caps the number of pending plus processing tasks.
	// If zero, defaults to QueueSize.
	MaxActiveTasks int

	// PollInterval bounds how long the idle worker waits on the queue
	// before re-checking for shutdown. If zero, defaults to one second.
	PollInterval time.Duration

	// DefaultReference is the reference audio used when a request has none
	DefaultReference string

	// ResultURLPrefix is prepended to the result filename of completed tasks
	ResultURLPrefix string
}

// DefaultTaskRunnerConfig returns a TaskRunnerConfig with reasonable defaults
func DefaultTaskRunnerConfig() TaskRunnerConfig {
	return TaskRunnerConfig{
		QueueSize:        100,
		MaxActiveTasks:   100,
		PollInterval:     time.Second,
		DefaultReference: "examples/voice.wav",
		ResultURLPrefix:  "/api/v1/results",
	}
}

type runnerState int

const (
	runnerIdle runnerState = iota
	runnerRunning
	runnerStopped
)

// TaskRunner accepts synthesis jobs and executes them one at a time on a
// single worker goroutine.
type TaskRunner struct {
	store   *TaskStore
	results ResultStore
	config  TaskRunnerConfig
	logger  *slog.Logger
	emitter events.EventEmitter
	now     func() time.Time

	engineMu sync.RWMutex
	engine   Engine

	// admitMu makes the capacity check, record creation and enqueue of a
	// submission one step with respect to other submissions and to Stop.
	admitMu sync.Mutex

	lifecycleMu sync.Mutex
	state       runnerState
	queue       *TaskQueue
	cancelFunc  context.CancelFunc
	wg          sync.WaitGroup
}

// NewTaskRunner creates a new TaskRunner. The runner does not process
// anything until Start is called and an engine is set.
func NewTaskRunner(store *TaskStore, results ResultStore, config TaskRunnerConfig, logger *slog.Logger) *TaskRunner {
	if config.QueueSize < 1 {
		config.QueueSize = 1
	}
	if config.MaxActiveTasks <= 0 {
		config.MaxActiveTasks = config.QueueSize
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.ResultURLPrefix == "" {
		config.ResultURLPrefix = "/api/v1/results"
	}

	return &TaskRunner{
		store:   store,
		results: results,
		config:  config,
		logger:  logger.With("component", "task_runner"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// SetEventEmitter sets the emitter that receives lifecycle events.
// Must be called before Start.
func (r *TaskRunner) SetEventEmitter(emitter events.EventEmitter) {
	r.emitter = emitter
}

// SetEngine installs the synthesis engine. Passing nil marks the engine as
// not ready, and new submissions are rejected.
func (r *TaskRunner) SetEngine(engine Engine) {
	r.engineMu.Lock()
	defer r.engineMu.Unlock()
	r.engine = engine
}

// IsEngineReady reports whether an engine is installed.
func (r *TaskRunner) IsEngineReady() bool {
	return r.currentEngine() != nil
}

func (r *TaskRunner) currentEngine() Engine {
	r.engineMu.RLock()
	defer r.engineMu.RUnlock()
	return r.engine
}

// Submit admits a new job and returns its identifier without waiting for
// it to run. No record is left behind when admission fails.
func (r *TaskRunner) Submit(ctx context.Context, req SynthesisRequest) (uuid.UUID, error) {
	r.admitMu.Lock()
	defer r.admitMu.Unlock()

	queue := r.runningQueue()
	if queue == nil {
		return uuid.Nil, ErrRunnerNotStarted
	}

	if !r.IsEngineReady() {
		return uuid.Nil, ErrEngineNotReady
	}

	if active := r.store.CountActive(); active >= r.config.MaxActiveTasks {
		return uuid.Nil, fmt.Errorf("%w: %d active tasks", ErrQueueFull, active)
	}

	t := Task{
		ID:        uuid.New(),
		Status:    TaskStatusPending,
		CreatedAt: r.now(),
		Progress:  ProgressQueued,
	}
	if err := r.store.Create(t, req); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save task: %w", err)
	}

	if err := queue.Enqueue(t.ID); err != nil {
		if delErr := r.store.Delete(t.ID); delErr != nil {
			r.logger.Error("failed to roll back rejected task",
				"task_id", t.ID,
				"error", delErr)
		}
		if errors.Is(err, ErrQueueClosed) {
			return uuid.Nil, ErrRunnerNotStarted
		}
		return uuid.Nil, err
	}

	r.logger.Info("task submitted",
		"task_id", t.ID,
		"text_length", len(req.Text),
		"queue_len", queue.Len())
	r.emit(ctx, events.TaskSubmitted, t.ID, "")

	return t.ID, nil
}

// GetTask returns a snapshot of the task record.
func (r *TaskRunner) GetTask(id uuid.UUID) (Task, bool) {
	return r.store.Get(id)
}

// ListTasks returns snapshots of the task records matching filter.
func (r *TaskRunner) ListTasks(filter ListFilter) []Task {
	return r.store.List(filter)
}

// DeleteTask removes the task record, its request and its result artifact.
// Deleting a processing task does not interrupt the engine; the worker
// discards the result when it finishes.
func (r *TaskRunner) DeleteTask(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Delete(id); err != nil {
		return err
	}

	r.removeResult(id)
	r.logger.Info("task deleted", "task_id", id)
	r.emit(ctx, events.TaskDeleted, id, "")
	return nil
}

// ActiveCount returns the number of pending and processing tasks.
func (r *TaskRunner) ActiveCount() int {
	return r.store.CountActive()
}

// QueueLen returns the number of identifiers waiting in the queue.
func (r *TaskRunner) QueueLen() int {
	if q := r.runningQueue(); q != nil {
		return q.Len()
	}
	return 0
}

// QueueCap returns the configured queue capacity.
func (r *TaskRunner) QueueCap() int {
	return r.config.QueueSize
}

// Start provisions the queue and spawns the worker. It returns once the
// worker goroutine is running.
func (r *TaskRunner) Start() error {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	switch r.state {
	case runnerRunning:
		return ErrRunnerAlreadyStarted
	case runnerStopped:
		return ErrRunnerStopped
	}

	queue := NewTaskQueue(r.config.QueueSize, r.logger)
	ctx, cancel := context.WithCancel(context.Background())

	ready := make(chan struct{})
	r.wg.Add(1)
	go r.worker(ctx, queue, ready)
	<-ready

	r.queue = queue
	r.cancelFunc = cancel
	r.state = runnerRunning

	r.logger.Info("task runner started",
		"queue_size", r.config.QueueSize,
		"max_active_tasks", r.config.MaxActiveTasks)
	return nil
}

// Stop gracefully shuts down the task runner. An in-flight job runs to
// completion before Stop returns. Stop is safe to call more than once and
// before Start.
func (r *TaskRunner) Stop() {
	r.lifecycleMu.Lock()
	if r.state != runnerRunning {
		r.lifecycleMu.Unlock()
		return
	}
	r.state = runnerStopped
	cancel := r.cancelFunc
	queue := r.queue
	r.lifecycleMu.Unlock()

	cancel()
	r.wg.Wait()

	r.admitMu.Lock()
	queue.Close()
	r.admitMu.Unlock()

	r.logger.Info("task runner stopped")
}

// runningQueue returns the live queue, or nil unless the runner is running.
func (r *TaskRunner) runningQueue() *TaskQueue {
	r.lifecycleMu.Lock()
	defer r.lifecycleMu.Unlock()

	if r.state != runnerRunning {
		return nil
	}
	return r.queue
}

func (r *TaskRunner) resultURL(id uuid.UUID) string {
	return strings.TrimRight(r.config.ResultURLPrefix, "/") + "/" + r.results.ResultFilename(id)
}

func (r *TaskRunner) removeResult(id uuid.UUID) {
	if err := r.results.Remove(id); err != nil {
		r.logger.Warn("failed to remove task result", "task_id", id, "error", err)
	}
}

func (r *TaskRunner) emit(ctx context.Context, eventType events.EventType, id uuid.UUID, errMsg string) {
	if r.emitter == nil {
		return
	}
	event := events.NewTaskEvent(eventType, id)
	event.Error = errMsg
	if err := r.emitter.EmitEvent(ctx, event); err != nil {
		r.logger.Warn("failed to emit task event",
			"task_id", id,
			"event_type", eventType,
			"error", err)
	}
}
