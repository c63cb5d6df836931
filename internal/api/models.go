package api

import (
	"time"

	"github.com/sfzman/indextts-server/internal/task"
)

// CreateSynthesisRequest is the body of POST /api/v1/tts.
type CreateSynthesisRequest struct {
	Text           string    `json:"text" validate:"required,min=1,max=5000"`
	ReferenceAudio string    `json:"reference_audio,omitempty" validate:"omitempty,max=255"`
	EmotionPrompt  string    `json:"emotion_prompt,omitempty" validate:"omitempty,max=255"`
	EmotionText    string    `json:"emotion_text,omitempty" validate:"omitempty,max=1000"`
	EmotionVector  []float64 `json:"emotion_vector,omitempty" validate:"omitempty,len=8,dive,gte=0,lte=1"`
	EmotionAlpha   *float64  `json:"emotion_alpha,omitempty" validate:"omitempty,gte=0,lte=2"`
	UseEmotionText *bool     `json:"use_emotion_text,omitempty"`
}

func (r CreateSynthesisRequest) toSynthesisRequest() task.SynthesisRequest {
	return task.SynthesisRequest{
		Text:           r.Text,
		ReferenceAudio: r.ReferenceAudio,
		EmotionPrompt:  r.EmotionPrompt,
		EmotionText:    r.EmotionText,
		EmotionVector:  r.EmotionVector,
		EmotionAlpha:   r.EmotionAlpha,
		UseEmotionText: r.UseEmotionText,
	}
}

// SubmitResponse is returned when a task is accepted.
type SubmitResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

// MessageResponse carries a human-readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// TaskResponse represents the response data for a task. Nullable fields
// are rendered as JSON null until they are set.
type TaskResponse struct {
	TaskID       string     `json:"task_id"`
	Status       string     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at"`
	ErrorMessage *string    `json:"error_message"`
	ResultURL    *string    `json:"result_url"`
	Progress     float64    `json:"progress"`
}

// TaskListResponse is one page of tasks ordered by creation time.
type TaskListResponse struct {
	Tasks    []TaskResponse `json:"tasks"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// HealthResponse reports liveness and queue pressure.
type HealthResponse struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	PendingTasks  int    `json:"pending_tasks"`
	QueueLength   int    `json:"queue_length"`
	QueueCapacity int    `json:"queue_capacity"`
}

// taskToResponse converts a task.Task to a TaskResponse
func taskToResponse(t task.Task) TaskResponse {
	return TaskResponse{
		TaskID:       t.ID.String(),
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt,
		StartedAt:    t.StartedAt,
		CompletedAt:  t.CompletedAt,
		ErrorMessage: t.ErrorMessage,
		ResultURL:    t.ResultURL,
		Progress:     t.Progress,
	}
}
