package config

import "time"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Task      TaskConfig      `mapstructure:"task" validate:"required"`
	Storage   StorageConfig   `mapstructure:"storage" validate:"required"`
	Retention RetentionConfig `mapstructure:"retention"`
	Engine    EngineConfig    `mapstructure:"engine" validate:"required"`
	Inference InferenceConfig `mapstructure:"inference"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int      `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string   `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	CORSOrigins            []string `mapstructure:"cors_origins" validate:"required,min=1,dive,required"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// ShutdownTimeout returns the graceful shutdown budget.
func (c ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(c.ShutdownTimeoutSeconds) * time.Second
}

// TaskConfig controls the job queue and the worker.
type TaskConfig struct {
	QueueSize      int `mapstructure:"queue_size" validate:"required,gt=0"`
	MaxActiveTasks int `mapstructure:"max_active_tasks" validate:"required,gt=0"`
	PollIntervalMS int `mapstructure:"poll_interval_ms" validate:"required,gt=0"`
}

// PollInterval returns how long the idle worker waits on the queue.
func (c TaskConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// StorageConfig locates synthesized results and reference audio.
type StorageConfig struct {
	OutputDir       string `mapstructure:"output_dir" validate:"required"`
	ReferenceDir    string `mapstructure:"reference_dir" validate:"required"`
	ResultURLPrefix string `mapstructure:"result_url_prefix" validate:"required,startswith=/"`
}

// RetentionConfig controls the background cleanup of finished tasks.
type RetentionConfig struct {
	Enabled                bool `mapstructure:"enabled"`
	CleanupIntervalSeconds int  `mapstructure:"cleanup_interval_seconds" validate:"gt=0"`
	ResultRetentionSeconds int  `mapstructure:"result_retention_seconds" validate:"gt=0"`
}

// CleanupInterval returns how often finished tasks are swept.
func (c RetentionConfig) CleanupInterval() time.Duration {
	return time.Duration(c.CleanupIntervalSeconds) * time.Second
}

// ResultRetention returns how long finished tasks are kept.
func (c RetentionConfig) ResultRetention() time.Duration {
	return time.Duration(c.ResultRetentionSeconds) * time.Second
}

// Engine backends.
const (
	BackendHTTP   = "http"
	BackendGemini = "gemini"
)

// EngineConfig selects and configures the synthesis engine.
type EngineConfig struct {
	Backend          string `mapstructure:"backend" validate:"required,oneof=http gemini"`
	DefaultReference string `mapstructure:"default_reference" validate:"required"`
}

// InferenceConfig configures the remote inference service used by the http backend.
type InferenceConfig struct {
	URL              string `mapstructure:"url" validate:"required,url"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	JWTPrivateKey    string `mapstructure:"jwt_private_key"`
	JWTExpireSeconds int    `mapstructure:"jwt_expire_seconds" validate:"gt=0"`
}

// Timeout returns the per-request timeout for inference calls.
func (c InferenceConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GeminiConfig configures the Gemini speech backend.
type GeminiConfig struct {
	APIKey            string `mapstructure:"api_key"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	VoiceName         string `mapstructure:"voice_name" validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=10"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}
