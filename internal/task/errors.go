package task

import "errors"

// Common errors returned by the task store and runner
var (
	ErrTaskNotFound      = errors.New("task not found")
	ErrTaskExists        = errors.New("task already exists")
	ErrInvalidTransition = errors.New("invalid task status transition")
	ErrInvalidStatus     = errors.New("invalid task status")

	ErrEngineNotReady       = errors.New("synthesis engine is not ready")
	ErrRunnerNotStarted     = errors.New("task runner is not started")
	ErrRunnerAlreadyStarted = errors.New("task runner is already started")
	ErrRunnerStopped        = errors.New("task runner is stopped")

	// ErrEnginePanic wraps a panic raised by the engine during inference.
	ErrEnginePanic = errors.New("synthesis engine panicked")
)
