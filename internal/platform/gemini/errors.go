package gemini

import "errors"

// Error definitions for the gemini package.
var (
	// ErrInvalidConfig is returned when the engine configuration is invalid.
	ErrInvalidConfig = errors.New("invalid gemini engine configuration")

	// ErrInvalidResponse is returned when the response carries no usable audio.
	ErrInvalidResponse = errors.New("invalid response from speech model")

	// ErrContentBlocked is returned when the model blocks the text due to safety filters.
	ErrContentBlocked = errors.New("content blocked by speech model safety filters")

	// ErrTransientFailure is returned when retries are exhausted or interrupted.
	ErrTransientFailure = errors.New("transient error during speech synthesis")

	// ErrEmptyText is returned when there is nothing to synthesize.
	ErrEmptyText = errors.New("text cannot be empty")
)
