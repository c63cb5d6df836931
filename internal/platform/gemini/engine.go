package gemini

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/sfzman/indextts-server/internal/storage"
	"github.com/sfzman/indextts-server/internal/task"
	"google.golang.org/genai"
)

// Config holds the settings of the Gemini speech engine.
type Config struct {
	APIKey     string
	ModelName  string
	VoiceName  string
	MaxRetries int
	// RetryDelay is the base of the exponential backoff between attempts.
	RetryDelay time.Duration
}

// contentGenerator is the subset of *genai.Models the engine needs.
type contentGenerator interface {
	GenerateContent(
		ctx context.Context,
		model string,
		contents []*genai.Content,
		config *genai.GenerateContentConfig,
	) (*genai.GenerateContentResponse, error)
}

// Engine implements task.Engine using the Gemini text-to-speech models.
type Engine struct {
	logger *slog.Logger
	config Config
	models contentGenerator
	rng    *rand.Rand
}

var _ task.Engine = (*Engine)(nil)

// NewEngine creates a Gemini client and returns an Engine using it.
func NewEngine(ctx context.Context, logger *slog.Logger, cfg Config) (*Engine, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", ErrInvalidConfig, err)
	}

	return newEngine(logger, cfg, client.Models), nil
}

func newEngine(logger *slog.Logger, cfg Config, models contentGenerator) *Engine {
	if cfg.MaxRetries < 0 {
		logger.Warn("invalid max retries value, using default", "max_retries", 3)
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		logger.Warn("invalid retry delay value, using default", "retry_delay", 2*time.Second)
		cfg.RetryDelay = 2 * time.Second
	}
	return &Engine{
		logger: logger.With("component", "gemini_engine"),
		config: cfg,
		models: models,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func validateConfig(cfg Config) error {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return fmt.Errorf("%w: gemini API key cannot be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.ModelName) == "" {
		return fmt.Errorf("%w: model name cannot be empty", ErrInvalidConfig)
	}
	if strings.TrimSpace(cfg.VoiceName) == "" {
		return fmt.Errorf("%w: voice name cannot be empty", ErrInvalidConfig)
	}
	return nil
}

// Infer synthesizes req.Text with the configured prebuilt voice and writes a
// WAV file to req.OutputPath. The reference audio is not used: Gemini voices
// are selected by name.
func (e *Engine) Infer(ctx context.Context, req task.InferRequest) error {
	if strings.TrimSpace(req.Text) == "" {
		return ErrEmptyText
	}
	if req.OutputPath == "" {
		return errors.New("output path cannot be empty")
	}

	pcm, sampleRate, err := e.synthesizeWithRetry(ctx, req.TaskID.String(), buildPrompt(req))
	if err != nil {
		return err
	}

	wav := encodeWAV(pcm, sampleRate, pcmChannels, pcmBitsPerSample)
	if err := storage.WriteFileAtomic(req.OutputPath, bytes.NewReader(wav)); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}

	e.logger.InfoContext(ctx, "speech synthesized",
		"task_id", req.TaskID,
		"sample_rate", sampleRate,
		"bytes", len(wav))
	return nil
}

// buildPrompt prefixes the text with a delivery instruction when an
// emotion description is present and not explicitly disabled. Emotion
// reference audio has no Gemini counterpart and is ignored.
func buildPrompt(req task.InferRequest) string {
	emotion := strings.TrimSpace(req.EmotionText)
	if emotion == "" || (req.UseEmotionText != nil && !*req.UseEmotionText) {
		return req.Text
	}
	return fmt.Sprintf("Say the following in a %s tone:\n%s", emotion, req.Text)
}

func (e *Engine) speechConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseModalities: []string{"AUDIO"},
		SpeechConfig: &genai.SpeechConfig{
			VoiceConfig: &genai.VoiceConfig{
				PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
					VoiceName: e.config.VoiceName,
				},
			},
		},
	}
}

// synthesizeWithRetry calls the API up to MaxRetries+1 times, using
// exponential backoff with jitter between attempts for transient errors.
// Blocked or malformed responses are returned immediately.
func (e *Engine) synthesizeWithRetry(ctx context.Context, taskID, prompt string) ([]byte, int, error) {
	maxRetries := e.config.MaxRetries

	for attempt := 0; ; attempt++ {
		attemptNum := attempt + 1
		e.logger.DebugContext(ctx, "making Gemini API call",
			"task_id", taskID,
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		resp, err := e.models.GenerateContent(ctx, e.config.ModelName, genai.Text(prompt), e.speechConfig())
		if err == nil {
			pcm, rate, perr := extractAudio(resp)
			if perr != nil {
				e.logger.WarnContext(ctx, "permanent error occurred, not retrying",
					"task_id", taskID,
					"error", perr)
				return nil, 0, perr
			}
			return pcm, rate, nil
		}

		e.logger.ErrorContext(ctx, "Gemini API call failed",
			"task_id", taskID,
			"attempt", attemptNum,
			"error", err)

		if !isTransient(err) {
			return nil, 0, fmt.Errorf("gemini API call failed: %w", err)
		}
		if attempt >= maxRetries {
			return nil, 0, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
				ErrTransientFailure, maxRetries, err)
		}

		// delay = baseDelay * (2^attempt) * (0.5 + rand(0, 0.5))
		backoff := float64(e.config.RetryDelay) * math.Pow(2, float64(attempt))
		delay := time.Duration(backoff * (0.5 + e.rng.Float64()*0.5))

		e.logger.InfoContext(ctx, "retrying after delay",
			"task_id", taskID,
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, 0, fmt.Errorf("%w: %v", ErrTransientFailure, ctx.Err())
		}
	}
}

// isTransient reports whether err is worth retrying: rate limiting, server
// errors, and failures that never produced an HTTP status.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= http.StatusInternalServerError
	}
	return true
}

// extractAudio concatenates the inline audio parts of the first candidate.
func extractAudio(resp *genai.GenerateContentResponse) ([]byte, int, error) {
	switch {
	case resp == nil:
		return nil, 0, fmt.Errorf("%w: nil response", ErrInvalidResponse)
	case len(resp.Candidates) == 0:
		return nil, 0, fmt.Errorf("%w: no content generated", ErrInvalidResponse)
	case resp.Candidates[0].FinishReason == genai.FinishReasonSafety:
		return nil, 0, ErrContentBlocked
	case resp.Candidates[0].Content == nil:
		return nil, 0, fmt.Errorf("%w: empty content in response", ErrInvalidResponse)
	}

	var pcm []byte
	rate := defaultSampleRate
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		if mt := part.InlineData.MIMEType; mt != "" && !strings.HasPrefix(mt, "audio/") {
			continue
		}
		if len(pcm) == 0 {
			rate = sampleRateFromMIME(part.InlineData.MIMEType)
		}
		pcm = append(pcm, part.InlineData.Data...)
	}

	if len(pcm) == 0 {
		return nil, 0, fmt.Errorf("%w: no audio in response", ErrInvalidResponse)
	}
	return pcm, rate, nil
}
