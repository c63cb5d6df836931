package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"testing"

	"github.com/sfzman/indextts-server/internal/api/shared"
	"github.com/sfzman/indextts-server/internal/storage"
	"github.com/sfzman/indextts-server/internal/task"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{ErrInvalidID, http.StatusBadRequest, "Invalid task ID"},
		{fmt.Errorf("%w: x.wav", ErrReferenceNotFound), http.StatusBadRequest, "Reference audio not found"},
		{ErrInvalidPagination, http.StatusBadRequest, "Invalid pagination parameters"},
		{fmt.Errorf("%w: %q", task.ErrInvalidStatus, "done"), http.StatusBadRequest, "Invalid status filter"},
		{storage.ErrInvalidKey, http.StatusBadRequest, "Invalid file name"},
		{fmt.Errorf("submit: %w", task.ErrQueueFull), http.StatusTooManyRequests, "Task queue is full. Please try again later."},
		{task.ErrEngineNotReady, http.StatusServiceUnavailable, "TTS model not loaded. Server is not ready."},
		{task.ErrRunnerNotStarted, http.StatusServiceUnavailable, "Server is not accepting tasks"},
		{task.ErrRunnerStopped, http.StatusServiceUnavailable, "Server is not accepting tasks"},
		{task.ErrTaskNotFound, http.StatusNotFound, "Task not found"},
		{fmt.Errorf("storage: stat a.wav: %w", os.ErrNotExist), http.StatusNotFound, "Result file not found"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "An unexpected error occurred"},
	}

	for _, tc := range tests {
		t.Run(tc.err.Error(), func(t *testing.T) {
			assert.Equal(t, tc.status, MapErrorToStatusCode(tc.err))
			assert.Equal(t, tc.message, GetSafeErrorMessage(tc.err))
		})
	}

	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
}

func TestHandleAPIError_DefaultMessageOnlyForInternalErrors(t *testing.T) {
	w := doRequest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleAPIError(w, r, errors.New("boom at /var/lib/secret"), "Failed to submit task")
	}), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to submit task", decodeBody[shared.ErrorResponse](t, w).Error)
	assert.NotContains(t, w.Body.String(), "/var/lib")

	w = doRequest(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		HandleAPIError(w, r, task.ErrTaskNotFound, "Failed to delete task")
	}), http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Task not found", decodeBody[shared.ErrorResponse](t, w).Error)
}

func TestSanitizeValidationError(t *testing.T) {
	alpha := 3.0
	tests := []struct {
		name string
		req  CreateSynthesisRequest
		want string
	}{
		{"required", CreateSynthesisRequest{}, "Invalid text: required field"},
		{"vector length", CreateSynthesisRequest{Text: "a", EmotionVector: []float64{1}}, "Invalid emotion_vector: must have exactly 8 elements"},
		{"alpha range", CreateSynthesisRequest{Text: "a", EmotionAlpha: &alpha}, "Invalid emotion_alpha: must be at most 2"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := shared.ValidateRequest(tc.req)
			assert.Equal(t, tc.want, SanitizeValidationError(err))
		})
	}

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("other")))
}
