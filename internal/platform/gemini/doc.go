// Package gemini provides a task.Engine that synthesizes speech with
// Google's Gemini text-to-speech models.
//
// This package is an infrastructure adapter: it translates a task.InferRequest
// into a GenerateContent call with an AUDIO response modality and a prebuilt
// voice, and turns the raw PCM in the response into a WAV file at the job's
// output path.
//
// Key components:
//
// 1. Engine:
//   - Implements the task.Engine interface
//   - Builds the speech prompt, including an optional emotion instruction
//
// 2. Error Handling:
//   - Retries transient API errors with exponential backoff and jitter
//   - Treats blocked or empty responses as permanent failures
//
// 3. Audio Encoding:
//   - Wraps 16-bit little-endian PCM in a RIFF/WAVE container
//
// The package depends on the google.golang.org/genai client library for
// communicating with the Gemini API.
package gemini
