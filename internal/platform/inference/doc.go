// Package inference implements task.Engine against a remote IndexTTS
// inference service.
//
// Each job is a single POST of the synthesis parameters to
// <url>/api/v1/tts. The service answers with the raw audio, which the
// client writes to the job's output path through a temporary file so a
// partially transferred result is never visible. When a signing key is
// configured, every request carries a short-lived RS256 bearer token.
package inference
