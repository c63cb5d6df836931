package shared

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sfzman/indextts-server/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "Expected empty trace ID in original context")

	ctxWithTrace := SetTraceID(ctx)
	traceID := GetTraceID(ctxWithTrace)
	assert.Len(t, traceID, 32, "Expected trace ID length to be 32 hex characters (16 bytes)")
	_, err := hex.DecodeString(traceID)
	assert.NoError(t, err)

	assert.Equal(t, "abc", GetTraceID(WithTraceID(ctx, "abc")))

	invalid := context.WithValue(ctx, TraceIDKey, 123)
	assert.Empty(t, GetTraceID(invalid), "Expected empty trace ID when context has invalid type")
}

func TestGenerateTraceIDUniqueness(t *testing.T) {
	const iterations = 1000
	seen := make(map[string]bool, iterations)
	for i := 0; i < iterations; i++ {
		id := generateTraceID()
		require.False(t, seen[id], "duplicate trace ID %s", id)
		seen[id] = true
	}
	assert.Len(t, generateFallbackTraceID(), 32)
}

func TestIsValidTraceID(t *testing.T) {
	assert.True(t, IsValidTraceID("0af7651916cd43dd8448eb211c80319c"))
	assert.True(t, IsValidTraceID("123e4567-e89b-12d3-a456-426614174000"))
	assert.False(t, IsValidTraceID("abc"))
	assert.False(t, IsValidTraceID("not-hex-value-zz"))
	assert.False(t, IsValidTraceID(strings.Repeat("a", 65)))
}

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusAccepted, map[string]any{"task_id": "x"})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"task_id":"x"}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithTraceID(logger.WithLogger(context.Background(), log), "trace-1")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tts", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, req, http.StatusInternalServerError, "Failed to submit task",
		errors.New("open /var/lib/indextts/outputs/abc.wav: permission denied"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Failed to submit task", body["error"])
	assert.Equal(t, "trace-1", body["trace_id"])
	assert.NotContains(t, w.Body.String(), "permission denied")

	assert.Contains(t, logs.String(), `"level":"ERROR"`)
	assert.Contains(t, logs.String(), "API error response")
	assert.NotContains(t, logs.String(), "/var/lib/indextts")
}

func TestRespondWithError_LogLevels(t *testing.T) {
	tests := []struct {
		status int
		level  string
	}{
		{http.StatusBadRequest, "DEBUG"},
		{http.StatusNotFound, "DEBUG"},
		{http.StatusTooManyRequests, "WARN"},
		{http.StatusServiceUnavailable, "WARN"},
		{http.StatusInternalServerError, "ERROR"},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var logs bytes.Buffer
			log := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
			req := httptest.NewRequest(http.MethodGet, "/", nil).
				WithContext(logger.WithLogger(context.Background(), log))

			RespondWithError(httptest.NewRecorder(), req, tt.status, "msg")
			assert.Contains(t, logs.String(), `"level":"`+tt.level+`"`)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Text string `json:"text" validate:"required"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr error
		fails   bool
	}{
		{name: "valid json", body: `{"text":"hello"}`},
		{name: "invalid json", body: `{"text":}`, fails: true},
		{name: "empty body", body: "", wantErr: ErrEmptyBody, fails: true},
		{name: "too large", body: `{"text":"` + strings.Repeat("a", MaxRequestBodyBytes) + `"}`, fails: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			var p payload
			err := DecodeJSON(httptest.NewRecorder(), req, &p)
			if !tc.fails {
				require.NoError(t, err)
				assert.Equal(t, "hello", p.Text)
				return
			}
			require.Error(t, err)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			}
		})
	}
}

type selfValidating struct{ ok bool }

func (s selfValidating) Validate() error {
	if !s.ok {
		return errors.New("not ok")
	}
	return nil
}

func TestValidateRequest(t *testing.T) {
	type payload struct {
		Text string `validate:"required,max=5"`
	}
	assert.NoError(t, ValidateRequest(payload{Text: "hi"}))
	assert.Error(t, ValidateRequest(payload{}))
	assert.Error(t, ValidateRequest(payload{Text: "too long"}))

	assert.NoError(t, ValidateRequest(selfValidating{ok: true}))
	assert.EqualError(t, ValidateRequest(selfValidating{}), "not ok")
}

func TestValidateRequest_ReportsJSONFieldNames(t *testing.T) {
	type payload struct {
		Text string `json:"text,omitempty" validate:"required"`
	}
	err := ValidateRequest(payload{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'text'")
}
