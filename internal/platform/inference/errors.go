package inference

import "errors"

var (
	// ErrInvalidConfig is returned when the client cannot be built from its configuration.
	ErrInvalidConfig = errors.New("invalid inference configuration")

	// ErrUnexpectedStatus is returned when the inference service answers with a non-200 status.
	ErrUnexpectedStatus = errors.New("unexpected inference status")

	// ErrEmptyAudio is returned when the inference service answers 200 without a body.
	ErrEmptyAudio = errors.New("inference returned no audio")
)
