package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors returned by the TaskQueue
var (
	ErrQueueClosed    = errors.New("task queue is closed")
	ErrQueueFull      = errors.New("task queue is full")
	ErrDequeueTimeout = errors.New("timed out waiting for task")
)

// TaskQueue is a bounded FIFO of task identifiers backed by a buffered channel.
// Enqueue never blocks; a full queue rejects the identifier.
type TaskQueue struct {
	ids    chan uuid.UUID
	logger *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// NewTaskQueue creates a new task queue with the specified buffer size
func NewTaskQueue(size int, logger *slog.Logger) *TaskQueue {
	if size < 1 {
		size = 1
	}
	return &TaskQueue{
		ids:    make(chan uuid.UUID, size),
		logger: logger,
	}
}

// Enqueue adds a task identifier to the queue.
// Returns ErrQueueClosed after Close and ErrQueueFull when at capacity.
func (q *TaskQueue) Enqueue(id uuid.UUID) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.ids <- id:
		q.logger.Debug("task enqueued",
			"task_id", id,
			"queue_len", len(q.ids),
			"queue_cap", cap(q.ids))
		return nil
	default:
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(q.ids))
	}
}

// Dequeue waits up to wait for the next identifier.
// It returns ErrDequeueTimeout when nothing arrived in time, the context error
// when ctx is done, and ErrQueueClosed once the queue is closed and drained.
func (q *TaskQueue) Dequeue(ctx context.Context, wait time.Duration) (uuid.UUID, error) {
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case id, ok := <-q.ids:
		if !ok {
			return uuid.Nil, ErrQueueClosed
		}
		return id, nil
	case <-timer.C:
		return uuid.Nil, ErrDequeueTimeout
	case <-ctx.Done():
		return uuid.Nil, ctx.Err()
	}
}

// Len returns the number of identifiers waiting in the queue.
func (q *TaskQueue) Len() int {
	return len(q.ids)
}

// Cap returns the queue capacity.
func (q *TaskQueue) Cap() int {
	return cap(q.ids)
}

// Close closes the task queue, preventing further task submission.
// Safe to call more than once.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ids)
		q.logger.Info("task queue closed")
	}
}
