package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/google/uuid"
	"github.com/sfzman/indextts-server/internal/api/shared"
	"github.com/sfzman/indextts-server/internal/platform/logger"
	"github.com/sfzman/indextts-server/internal/task"
)

// TaskService is the part of the task runner the HTTP layer drives.
type TaskService interface {
	Submit(ctx context.Context, req task.SynthesisRequest) (uuid.UUID, error)
	GetTask(id uuid.UUID) (task.Task, bool)
	ListTasks(filter task.ListFilter) []task.Task
	DeleteTask(ctx context.Context, id uuid.UUID) error
}

// ReferenceResolver maps a reference audio name from a request to a file
// the engine can read.
type ReferenceResolver interface {
	Lookup(key string) (string, error)
}

// TTSHandler handles synthesis task HTTP requests
type TTSHandler struct {
	tasks      TaskService
	references ReferenceResolver
}

// NewTTSHandler creates a new TTSHandler. When references is nil, reference
// audio values are passed to the engine unchanged.
func NewTTSHandler(tasks TaskService, references ReferenceResolver) *TTSHandler {
	return &TTSHandler{
		tasks:      tasks,
		references: references,
	}
}

// CreateTask handles POST /api/v1/tts requests
func (h *TTSHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req CreateSynthesisRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		HandleValidationError(w, r, err)
		return
	}

	synth := req.toSynthesisRequest()
	var err error
	if synth.ReferenceAudio, err = h.resolveReference(req.ReferenceAudio); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if synth.EmotionPrompt, err = h.resolveReference(req.EmotionPrompt); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	// Return with 202 Accepted status since processing happens asynchronously
	id, err := h.tasks.Submit(r.Context(), synth)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to submit task")
		return
	}

	log.Info("task submitted", "task_id", id, "text_length", len(req.Text))
	shared.RespondWithJSON(w, r, http.StatusAccepted, SubmitResponse{
		TaskID:  id.String(),
		Message: "Task submitted successfully",
	})
}

// GetTask handles GET /api/v1/tasks/{id} requests
func (h *TTSHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	t, ok := h.tasks.GetTask(id)
	if !ok {
		HandleAPIError(w, r, task.ErrTaskNotFound, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToResponse(t))
}

// ListTasks handles GET /api/v1/tasks requests with optional status,
// page, and page_size query parameters.
func (h *TTSHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	var filter task.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := task.ParseStatus(raw)
		if err != nil {
			HandleAPIError(w, r, err, "")
			return
		}
		filter.Status = status
	}

	page, pageSize, err := getPagination(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	all := h.tasks.ListTasks(filter)
	start := len(all)
	// Checked by division so a huge page number cannot overflow the offset
	if page-1 <= len(all)/pageSize {
		start = min((page-1)*pageSize, len(all))
	}
	end := start + min(pageSize, len(all)-start)

	items := make([]TaskResponse, 0, end-start)
	for _, t := range all[start:end] {
		items = append(items, taskToResponse(t))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks:    items,
		Total:    len(all),
		Page:     page,
		PageSize: pageSize,
	})
}

// DeleteTask handles DELETE /api/v1/tasks/{id} requests
func (h *TTSHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := getPathUUID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	if err := h.tasks.DeleteTask(r.Context(), id); err != nil {
		HandleAPIError(w, r, err, "Failed to delete task")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, MessageResponse{
		Message: fmt.Sprintf("Task %s deleted successfully", id),
	})
}

func (h *TTSHandler) resolveReference(name string) (string, error) {
	if name == "" || h.references == nil {
		return name, nil
	}
	path, err := h.references.Lookup(name)
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrReferenceNotFound, name)
	}
	return path, err
}
