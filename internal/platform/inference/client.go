package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sfzman/indextts-server/internal/storage"
	"github.com/sfzman/indextts-server/internal/task"
)

const (
	synthesizePath = "/api/v1/tts"
	healthPath     = "/health"

	// maxErrorBody caps how much of a failed response ends up in the error message.
	maxErrorBody = 512
)

// Config describes how to reach the inference service.
type Config struct {
	// URL is the base URL of the service, e.g. http://localhost:9000.
	URL string
	// Timeout bounds a whole synthesis request.
	Timeout time.Duration
	// PrivateKeyPEM enables bearer authentication when non-empty.
	PrivateKeyPEM string
	// TokenLifetime is the validity window of each bearer token.
	TokenLifetime time.Duration
}

// Client is a task.Engine backed by the remote inference service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	signer     *tokenSigner
	logger     *slog.Logger
}

var _ task.Engine = (*Client)(nil)

// synthesizeRequest is the JSON body of POST /api/v1/tts.
type synthesizeRequest struct {
	Text           string    `json:"text"`
	ReferenceAudio string    `json:"reference_audio,omitempty"`
	EmotionPrompt  string    `json:"emotion_prompt,omitempty"`
	EmotionText    string    `json:"emotion_text,omitempty"`
	EmotionVector  []float64 `json:"emotion_vector,omitempty"`
	EmotionAlpha   *float64  `json:"emotion_alpha,omitempty"`
	UseEmotionText *bool     `json:"use_emotion_text,omitempty"`
}

// NewClient validates cfg and returns a ready Client.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		return nil, fmt.Errorf("%w: logger cannot be nil", ErrInvalidConfig)
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("%w: url cannot be empty", ErrInvalidConfig)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With("component", "inference_client"),
	}

	if strings.TrimSpace(cfg.PrivateKeyPEM) != "" {
		key, err := parsePrivateKey(cfg.PrivateKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		lifetime := cfg.TokenLifetime
		if lifetime <= 0 {
			lifetime = time.Minute
		}
		c.signer = &tokenSigner{key: key, lifetime: lifetime, timeFunc: time.Now}
	}

	return c, nil
}

// Ping checks that the inference service is up.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("failed to create health request: %w", err)
	}
	if err := c.authorize(req); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach inference service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}
	return nil
}

// Infer sends one synthesis job and writes the returned audio to req.OutputPath.
func (c *Client) Infer(ctx context.Context, req task.InferRequest) error {
	if req.OutputPath == "" {
		return errors.New("output path cannot be empty")
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:           req.Text,
		ReferenceAudio: req.ReferenceAudio,
		EmotionPrompt:  req.EmotionPrompt,
		EmotionText:    req.EmotionText,
		EmotionVector:  req.EmotionVector,
		EmotionAlpha:   req.EmotionAlpha,
		UseEmotionText: req.UseEmotionText,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+synthesizePath, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.authorize(httpReq); err != nil {
		return err
	}

	start := time.Now()
	c.logger.DebugContext(ctx, "calling inference service",
		"task_id", req.TaskID,
		"text_length", len(req.Text))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to call inference API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(audio) == 0 {
		return ErrEmptyAudio
	}

	if err := storage.WriteFileAtomic(req.OutputPath, bytes.NewReader(audio)); err != nil {
		return fmt.Errorf("failed to save audio: %w", err)
	}

	c.logger.InfoContext(ctx, "inference completed",
		"task_id", req.TaskID,
		"bytes", len(audio),
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *Client) authorize(req *http.Request) error {
	if c.signer == nil {
		return nil
	}
	token, err := c.signer.sign()
	if err != nil {
		return fmt.Errorf("failed to generate JWT: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

// statusError reads a bounded prefix of the body into the returned error.
func statusError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("%w: inference API returned status %d: %s",
		ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(snippet)))
}
