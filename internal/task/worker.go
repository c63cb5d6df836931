package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sfzman/indextts-server/internal/events"
)

// worker processes tasks from the queue one at a time until ctx is cancelled.
func (r *TaskRunner) worker(ctx context.Context, queue *TaskQueue, ready chan<- struct{}) {
	defer r.wg.Done()

	r.logger.Debug("starting worker")
	close(ready)

	for {
		id, err := queue.Dequeue(ctx, r.config.PollInterval)
		switch {
		case err == nil:
		case errors.Is(err, ErrDequeueTimeout):
			continue
		case errors.Is(err, ErrQueueClosed):
			r.logger.Debug("task queue closed, stopping worker")
			return
		default:
			r.logger.Debug("stopping worker")
			return
		}

		// Shutdown wins over a job dequeued at the same moment; it stays pending.
		if ctx.Err() != nil {
			r.logger.Debug("stopping worker, leaving dequeued task pending", "task_id", id)
			return
		}

		r.processTask(id)
	}
}

// processTask handles execution of a single task. Failures are recorded on
// the task and never escape to the worker loop.
func (r *TaskRunner) processTask(id uuid.UUID) {
	ctx := context.Background()
	logger := r.logger.With("task_id", id)

	req, ok := r.store.Request(id)
	if !ok {
		logger.Warn("task not found, skipping")
		return
	}

	startedAt := r.now()
	_, err := r.store.Update(id, func(t *Task) error {
		t.Status = TaskStatusProcessing
		t.StartedAt = &startedAt
		t.Progress = ProgressStarted
		return nil
	})
	if err != nil {
		logger.Warn("failed to update task status to processing, skipping", "error", err)
		return
	}
	r.emit(ctx, events.TaskProcessing, id, "")
	logger.Info("processing task")

	reference := req.ReferenceAudio
	if reference == "" {
		reference = r.config.DefaultReference
	}

	if _, err := r.store.Update(id, func(t *Task) error {
		t.Progress = ProgressInferring
		return nil
	}); err != nil {
		logger.Debug("failed to update task progress", "error", err)
	}

	inferReq := InferRequest{
		TaskID:         id,
		Text:           req.Text,
		ReferenceAudio: reference,
		EmotionPrompt:  req.EmotionPrompt,
		EmotionText:    req.EmotionText,
		EmotionVector:  req.EmotionVector,
		EmotionAlpha:   req.EmotionAlpha,
		UseEmotionText: req.UseEmotionText,
		OutputPath:     r.results.ResultPath(id),
	}

	if err := r.runEngine(ctx, inferReq); err != nil {
		r.failTask(ctx, id, err)
		return
	}
	r.completeTask(ctx, id)
}

// runEngine offloads the blocking engine call to its own goroutine and waits
// for it. A panic inside the engine is converted into an error.
func (r *TaskRunner) runEngine(ctx context.Context, req InferRequest) error {
	engine := r.currentEngine()
	if engine == nil {
		return ErrEngineNotReady
	}

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("%w: %v", ErrEnginePanic, p)
			}
		}()
		done <- engine.Infer(ctx, req)
	}()

	return <-done
}

func (r *TaskRunner) completeTask(ctx context.Context, id uuid.UUID) {
	logger := r.logger.With("task_id", id)

	completedAt := r.now()
	url := r.resultURL(id)
	_, err := r.store.Update(id, func(t *Task) error {
		t.Status = TaskStatusCompleted
		t.Progress = ProgressDone
		t.CompletedAt = &completedAt
		t.ResultURL = &url
		return nil
	})
	if errors.Is(err, ErrTaskNotFound) {
		logger.Info("task deleted during processing, discarding result")
		r.removeResult(id)
		return
	}
	if err != nil {
		logger.Error("failed to update task status to completed", "error", err)
		return
	}

	logger.Info("task completed successfully", "result_url", url)
	r.emit(ctx, events.TaskCompleted, id, "")
}

func (r *TaskRunner) failTask(ctx context.Context, id uuid.UUID, cause error) {
	logger := r.logger.With("task_id", id)
	logger.Error("task execution failed", "error", cause)

	// A failed job never keeps a partial artifact
	r.removeResult(id)

	completedAt := r.now()
	msg := cause.Error()
	_, err := r.store.Update(id, func(t *Task) error {
		t.Status = TaskStatusFailed
		t.CompletedAt = &completedAt
		t.ErrorMessage = &msg
		return nil
	})
	if errors.Is(err, ErrTaskNotFound) {
		logger.Info("task deleted during processing")
		return
	}
	if err != nil {
		logger.Error("failed to update task status to failed", "error", err)
		return
	}

	r.emit(ctx, events.TaskFailed, id, msg)
}
