package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. INDEXTTS_SERVER_PORT.
const EnvPrefix = "INDEXTTS"

// Load configuration from environment variables and optionally config files.
// A .env file in the working directory is loaded first without overriding
// variables that are already set. Environment variables take precedence over
// values from config.yaml. Returns a populated Config struct or an error if
// loading/validation fails.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks field constraints and the settings required by the
// selected engine backend.
func Validate(cfg *Config) error {
	validate := validator.New()
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if cfg.Engine.Backend == BackendGemini && strings.TrimSpace(cfg.Gemini.APIKey) == "" {
		return errors.New("config validation failed: gemini.api_key is required for the gemini backend")
	}

	return nil
}

// setDefaults registers every key so that AutomaticEnv can bind it during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("task.queue_size", 100)
	v.SetDefault("task.max_active_tasks", 100)
	v.SetDefault("task.poll_interval_ms", 1000)

	v.SetDefault("storage.output_dir", "outputs")
	v.SetDefault("storage.reference_dir", "references")
	v.SetDefault("storage.result_url_prefix", "/api/v1/results")

	v.SetDefault("retention.enabled", true)
	v.SetDefault("retention.cleanup_interval_seconds", 3600)
	v.SetDefault("retention.result_retention_seconds", 86400)

	v.SetDefault("engine.backend", BackendHTTP)
	v.SetDefault("engine.default_reference", "examples/voice.wav")

	v.SetDefault("inference.url", "http://localhost:9000")
	v.SetDefault("inference.timeout_seconds", 300)
	v.SetDefault("inference.jwt_private_key", "")
	v.SetDefault("inference.jwt_expire_seconds", 60)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.5-flash-preview-tts")
	v.SetDefault("gemini.voice_name", "Kore")
	v.SetDefault("gemini.max_retries", 3)
	v.SetDefault("gemini.retry_delay_seconds", 2)
}
