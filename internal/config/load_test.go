package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupEnv sets up environment variables for testing
func setupEnv(t *testing.T, envVars map[string]string) func() {
	// Save current environment values
	originalValues := make(map[string]string)
	for name := range envVars {
		originalValues[name] = os.Getenv(name)
	}

	// Set new environment variables
	for name, value := range envVars {
		err := os.Setenv(name, value)
		require.NoError(t, err, "Failed to set environment variable %s", name)
	}

	// Return cleanup function
	return func() {
		// Restore original environment
		for name, value := range originalValues {
			if value == "" {
				os.Unsetenv(name)
			} else {
				os.Setenv(name, value)
			}
		}
	}
}

// TestLoadDefaults verifies that Load produces a valid configuration from
// defaults alone.
func TestLoadDefaults(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"INDEXTTS_SERVER_PORT":      "",
		"INDEXTTS_SERVER_LOG_LEVEL": "",
		"INDEXTTS_TASK_QUEUE_SIZE":  "",
		"INDEXTTS_ENGINE_BACKEND":   "",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with default values")
	require.NotNil(t, cfg, "Load() should return a non-nil config")
	assert.Equal(t, 8000, cfg.Server.Port, "Default server port should be 8000")
	assert.Equal(t, "info", cfg.Server.LogLevel, "Default log level should be 'info'")
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout())

	assert.Equal(t, 100, cfg.Task.QueueSize)
	assert.Equal(t, 100, cfg.Task.MaxActiveTasks)
	assert.Equal(t, time.Second, cfg.Task.PollInterval())

	assert.Equal(t, "outputs", cfg.Storage.OutputDir)
	assert.Equal(t, "/api/v1/results", cfg.Storage.ResultURLPrefix)

	assert.True(t, cfg.Retention.Enabled)
	assert.Equal(t, time.Hour, cfg.Retention.CleanupInterval())
	assert.Equal(t, 24*time.Hour, cfg.Retention.ResultRetention())

	assert.Equal(t, BackendHTTP, cfg.Engine.Backend)
	assert.Equal(t, "examples/voice.wav", cfg.Engine.DefaultReference)
	assert.Equal(t, 5*time.Minute, cfg.Inference.Timeout())
}

// TestLoadFromEnv verifies that the Load function correctly reads values from environment variables.
func TestLoadFromEnv(t *testing.T) {
	cleanup := setupEnv(t, map[string]string{
		"INDEXTTS_SERVER_PORT":                  "9090",
		"INDEXTTS_SERVER_LOG_LEVEL":             "debug",
		"INDEXTTS_SERVER_CORS_ORIGINS":          "https://a.example,https://b.example",
		"INDEXTTS_TASK_QUEUE_SIZE":              "5",
		"INDEXTTS_TASK_MAX_ACTIVE_TASKS":        "8",
		"INDEXTTS_TASK_POLL_INTERVAL_MS":        "250",
		"INDEXTTS_STORAGE_OUTPUT_DIR":           "/tmp/tts-out",
		"INDEXTTS_RETENTION_ENABLED":            "false",
		"INDEXTTS_ENGINE_BACKEND":               "gemini",
		"INDEXTTS_GEMINI_API_KEY":               "test-api-key",
		"INDEXTTS_INFERENCE_URL":                "http://inference:8000",
		"INDEXTTS_INFERENCE_JWT_EXPIRE_SECONDS": "120",
	})
	defer cleanup()

	cfg, err := Load()

	require.NoError(t, err, "Load() should not return an error with valid environment variables")
	require.NotNil(t, cfg, "Load() should return a non-nil config")
	assert.Equal(t, 9090, cfg.Server.Port, "Server port should be loaded from environment variables")
	assert.Equal(t, "debug", cfg.Server.LogLevel, "Log level should be loaded from environment variables")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5, cfg.Task.QueueSize)
	assert.Equal(t, 8, cfg.Task.MaxActiveTasks)
	assert.Equal(t, 250*time.Millisecond, cfg.Task.PollInterval())
	assert.Equal(t, "/tmp/tts-out", cfg.Storage.OutputDir)
	assert.False(t, cfg.Retention.Enabled)
	assert.Equal(t, BackendGemini, cfg.Engine.Backend)
	assert.Equal(t, "test-api-key", cfg.Gemini.APIKey)
	assert.Equal(t, "http://inference:8000", cfg.Inference.URL)
	assert.Equal(t, 120, cfg.Inference.JWTExpireSeconds)
}

// TestLoadValidationErrors verifies that the Load function correctly validates the configuration.
func TestLoadValidationErrors(t *testing.T) {
	testCases := []struct {
		name    string
		envVars map[string]string
	}{
		{
			name:    "Invalid port number",
			envVars: map[string]string{"INDEXTTS_SERVER_PORT": "999999"},
		},
		{
			name:    "Invalid log level",
			envVars: map[string]string{"INDEXTTS_SERVER_LOG_LEVEL": "invalid-level"},
		},
		{
			name:    "Negative queue size",
			envVars: map[string]string{"INDEXTTS_TASK_QUEUE_SIZE": "-1"},
		},
		{
			name:    "Unknown engine backend",
			envVars: map[string]string{"INDEXTTS_ENGINE_BACKEND": "onnx"},
		},
		{
			name:    "Relative result prefix",
			envVars: map[string]string{"INDEXTTS_STORAGE_RESULT_URL_PREFIX": "results"},
		},
		{
			name:    "Invalid inference URL",
			envVars: map[string]string{"INDEXTTS_INFERENCE_URL": "not a url"},
		},
		{
			name: "Gemini backend without API key",
			envVars: map[string]string{
				"INDEXTTS_ENGINE_BACKEND": "gemini",
				"INDEXTTS_GEMINI_API_KEY": "",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cleanup := setupEnv(t, tc.envVars)
			defer cleanup()

			cfg, err := Load()

			require.Error(t, err, "Load() should return an error with invalid configuration")
			assert.Contains(t, err.Error(), "validation failed", "Error message should contain expected substring")
			assert.Nil(t, cfg, "Config should be nil when an error occurs")
		})
	}
}

// TestDefaultsMatchConfigFields verifies that every registered default is
// bound to a Config field, so no setting is silently ignored.
func TestDefaultsMatchConfigFields(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	require.NoError(t, v.UnmarshalExact(&cfg))
	require.NoError(t, Validate(&cfg))
}
