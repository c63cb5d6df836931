package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the current state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Progress milestones reported by the worker. Values are advisory.
const (
	ProgressQueued    = 0.0
	ProgressStarted   = 10.0
	ProgressInferring = 30.0
	ProgressDone      = 100.0
)

// IsTerminal reports whether no further transitions are allowed from s.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Valid reports whether s is one of the known statuses.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusPending, TaskStatusProcessing, TaskStatusCompleted, TaskStatusFailed:
		return true
	}
	return false
}

// ParseStatus converts a raw string into a TaskStatus.
func ParseStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// canTransition enforces the forward-only lifecycle
// pending -> processing -> {completed, failed}.
func canTransition(from, to TaskStatus) bool {
	if from == to {
		return !from.IsTerminal()
	}
	switch from {
	case TaskStatusPending:
		return to == TaskStatusProcessing
	case TaskStatusProcessing:
		return to == TaskStatusCompleted || to == TaskStatusFailed
	default:
		return false
	}
}

// Task is the lifecycle record of a single synthesis job.
// Values returned from the store are snapshots; mutating them has no effect
// on the stored record.
type Task struct {
	ID           uuid.UUID  `json:"task_id"`
	Status       TaskStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage *string    `json:"error_message"`
	ResultURL    *string    `json:"result_url"`
	Progress     float64    `json:"progress"`
}

// clone returns a deep copy so callers never share pointers with the store.
func (t Task) clone() Task {
	c := t
	if t.StartedAt != nil {
		v := *t.StartedAt
		c.StartedAt = &v
	}
	if t.CompletedAt != nil {
		v := *t.CompletedAt
		c.CompletedAt = &v
	}
	if t.ErrorMessage != nil {
		v := *t.ErrorMessage
		c.ErrorMessage = &v
	}
	if t.ResultURL != nil {
		v := *t.ResultURL
		c.ResultURL = &v
	}
	return c
}

// SynthesisRequest is the immutable input of a job, kept alongside its record.
type SynthesisRequest struct {
	Text           string    `json:"text"`
	ReferenceAudio string    `json:"reference_audio,omitempty"`
	EmotionPrompt  string    `json:"emotion_prompt,omitempty"`
	EmotionText    string    `json:"emotion_text,omitempty"`
	EmotionVector  []float64 `json:"emotion_vector,omitempty"`
	EmotionAlpha   *float64  `json:"emotion_alpha,omitempty"`
	UseEmotionText *bool     `json:"use_emotion_text,omitempty"`
}

func (r SynthesisRequest) clone() SynthesisRequest {
	c := r
	if r.EmotionVector != nil {
		c.EmotionVector = append([]float64(nil), r.EmotionVector...)
	}
	if r.EmotionAlpha != nil {
		v := *r.EmotionAlpha
		c.EmotionAlpha = &v
	}
	if r.UseEmotionText != nil {
		v := *r.UseEmotionText
		c.UseEmotionText = &v
	}
	return c
}

// InferRequest is what the worker hands to the engine for one job.
type InferRequest struct {
	TaskID         uuid.UUID
	Text           string
	ReferenceAudio string
	EmotionPrompt  string
	EmotionText    string
	EmotionVector  []float64
	EmotionAlpha   *float64
	UseEmotionText *bool
	// OutputPath is where the engine must write the produced audio.
	OutputPath string
}

// Engine performs the speech synthesis for one job.
// Infer blocks until the audio is written to req.OutputPath or an error occurs.
type Engine interface {
	Infer(ctx context.Context, req InferRequest) error
}

// EngineFunc adapts an ordinary function to the Engine interface.
type EngineFunc func(ctx context.Context, req InferRequest) error

// Infer calls f(ctx, req).
func (f EngineFunc) Infer(ctx context.Context, req InferRequest) error {
	return f(ctx, req)
}

// ResultStore locates and removes the artifact produced for a job.
// Remove must treat a missing artifact as success.
type ResultStore interface {
	ResultPath(id uuid.UUID) string
	ResultFilename(id uuid.UUID) string
	Remove(id uuid.UUID) error
}
