package api

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"reflect"

	"github.com/go-playground/validator/v10"
	"github.com/sfzman/indextts-server/internal/api/shared"
	"github.com/sfzman/indextts-server/internal/storage"
	"github.com/sfzman/indextts-server/internal/task"
)

var (
	// ErrInvalidID is returned when a task identifier in the path is not a UUID.
	ErrInvalidID = errors.New("invalid task id")

	// ErrReferenceNotFound is returned when the requested reference audio does not exist.
	ErrReferenceNotFound = errors.New("reference audio not found")

	// ErrInvalidPagination is returned for malformed page or page_size parameters.
	ErrInvalidPagination = errors.New("invalid pagination")
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// Bad request errors
	case errors.Is(err, ErrInvalidID),
		errors.Is(err, ErrReferenceNotFound),
		errors.Is(err, ErrInvalidPagination),
		errors.Is(err, task.ErrInvalidStatus),
		errors.Is(err, storage.ErrInvalidKey):
		return http.StatusBadRequest

	// Backpressure
	case errors.Is(err, task.ErrQueueFull):
		return http.StatusTooManyRequests

	// Not ready to accept work
	case errors.Is(err, task.ErrEngineNotReady),
		errors.Is(err, task.ErrRunnerNotStarted),
		errors.Is(err, task.ErrRunnerStopped):
		return http.StatusServiceUnavailable

	// Not found errors
	case errors.Is(err, task.ErrTaskNotFound),
		errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, ErrInvalidID):
		return "Invalid task ID"
	case errors.Is(err, ErrReferenceNotFound):
		return "Reference audio not found"
	case errors.Is(err, ErrInvalidPagination):
		return "Invalid pagination parameters"
	case errors.Is(err, task.ErrInvalidStatus):
		return "Invalid status filter"
	case errors.Is(err, storage.ErrInvalidKey):
		return "Invalid file name"
	case errors.Is(err, task.ErrQueueFull):
		return "Task queue is full. Please try again later."
	case errors.Is(err, task.ErrEngineNotReady):
		return "TTS model not loaded. Server is not ready."
	case errors.Is(err, task.ErrRunnerNotStarted),
		errors.Is(err, task.ErrRunnerStopped):
		return "Server is not accepting tasks"
	case errors.Is(err, task.ErrTaskNotFound):
		return "Task not found"
	case errors.Is(err, os.ErrNotExist):
		return "Result file not found"
	default:
		return "An unexpected error occurred"
	}
}

// HandleAPIError responds with the status and safe message for err. For
// unmapped errors defaultMessage, when non-empty, replaces the generic message.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMessage string) {
	status := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if status == http.StatusInternalServerError && defaultMessage != "" {
		message = defaultMessage
	}
	shared.RespondWithErrorAndLog(w, r, status, message, err)
}

// HandleValidationError responds 400 with a sanitized description of err.
func HandleValidationError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
}

// SanitizeValidationError describes the first failed field of a validation
// error without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		fe := fieldErrs[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field"
	case "len":
		return "must have exactly " + fe.Param() + " elements"
	case "min", "gte":
		if isNumeric(fe) {
			return "must be at least " + fe.Param()
		}
		return "too short"
	case "max", "lte":
		if isNumeric(fe) {
			return "must be at most " + fe.Param()
		}
		return "too long"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

func isNumeric(fe validator.FieldError) bool {
	switch fe.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
