// Package config loads application configuration from config.yaml with
// environment variable overrides. Secrets are environment-only and never
// appear in the YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config is the root application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	AI       AIConfig       `yaml:"ai"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port            int           `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"15s"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes" env:"SERVER_MAX_UPLOAD_BYTES" env-default:"1048576"`
}

// Addr returns the listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds postgres connection settings. The URL is a secret
// and comes from the environment only.
type DatabaseConfig struct {
	URL             string        `yaml:"-" env:"DATABASE_URL" env-required:"true"`
	MaxConnections  int32         `yaml:"max_connections" env:"DATABASE_MAX_CONNECTIONS" env-default:"25"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime" env:"DATABASE_MAX_CONN_LIFETIME" env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
	MigrationsPath  string        `yaml:"migrations_path" env:"DATABASE_MIGRATIONS_PATH" env-default:"migrations"`
}

// AIConfig holds the LLM gateway settings. ProviderOrder is the fallback
// chain; only providers with credentials configured are registered.
type AIConfig struct {
	ProviderOrder  []string        `yaml:"provider_order" env:"AI_PROVIDER_ORDER" env-default:"openai,anthropic"`
	AttemptTimeout time.Duration   `yaml:"attempt_timeout" env:"AI_ATTEMPT_TIMEOUT" env-default:"30s"`
	MaxRetries     int             `yaml:"max_retries" env:"AI_MAX_RETRIES" env-default:"2"`
	OpenAI         OpenAIConfig    `yaml:"openai"`
	Anthropic      AnthropicConfig `yaml:"anthropic"`
}

// OpenAIConfig configures the OpenAI-compatible provider.
type OpenAIConfig struct {
	APIKey      string  `yaml:"-" env:"OPENAI_API_KEY"`
	Endpoint    string  `yaml:"endpoint" env:"OPENAI_ENDPOINT" env-default:"https://api.openai.com/v1"`
	Model       string  `yaml:"model" env:"OPENAI_MODEL" env-default:"gpt-4o"`
	Temperature float32 `yaml:"temperature" env:"OPENAI_TEMPERATURE" env-default:"0.1"`
}

// AnthropicConfig configures the Anthropic provider.
type AnthropicConfig struct {
	APIKey    string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	Model     string `yaml:"model" env:"ANTHROPIC_MODEL" env-default:"claude-3-5-sonnet-20241022"`
	MaxTokens int    `yaml:"max_tokens" env:"ANTHROPIC_MAX_TOKENS" env-default:"4000"`
}

// PipelineConfig bounds one analysis run.
type PipelineConfig struct {
	TotalBudget    time.Duration `yaml:"total_budget" env:"PIPELINE_TOTAL_BUDGET" env-default:"2m"`
	MaxSourceChars int           `yaml:"max_source_chars" env:"PIPELINE_MAX_SOURCE_CHARS" env-default:"16000"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level       string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT" env-default:"false"`
}

// Load reads configuration from the given YAML file, applying environment
// overrides. A missing file is fine: everything then comes from the
// environment and defaults.
func Load(path string) (*Config, error) {
	var cfg Config

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to read config from environment: %w", err)
		}
		return &cfg, nil
	}

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from %s: %w", path, err)
	}
	return &cfg, nil
}
