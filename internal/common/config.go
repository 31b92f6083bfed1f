package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the application configuration. Values load in priority order:
// defaults -> config file -> QUOTIENT_* environment -> command-line flags.
// Runtime-tunable settings (provider keys, thresholds, feature flags) live
// in the key-value settings store, not here; config covers process-level
// wiring only.
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Queue       QueueConfig     `toml:"queue"`
	Retention   RetentionConfig `toml:"retention"`
	Logging     LoggingConfig   `toml:"logging"`
	LLM         LLMConfig       `toml:"llm"`
	Embedding   EmbeddingConfig `toml:"embedding"`
	Match       MatchConfig     `toml:"match"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger   BadgerConfig   `toml:"badger"`
	Catalog  string         `toml:"catalog"` // "badger" (default) or "postgres"
	Postgres PostgresConfig `toml:"postgres"`
}

// BadgerConfig configures the embedded database used for jobs, queue state,
// settings, and (by default) the catalog.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

// PostgresConfig configures the optional pgvector-backed catalog.
type PostgresConfig struct {
	ConnString string `toml:"conn_string"`
}

type QueueConfig struct {
	Name              string `toml:"name"`
	PollInterval      string `toml:"poll_interval"`      // e.g. "500ms"
	VisibilityTimeout string `toml:"visibility_timeout"` // processing-lock duration, e.g. "2m"
	MaxReceive        int    `toml:"max_receive"`        // attempts before a job fails
	Concurrency       int    `toml:"concurrency"`
}

// RetentionConfig bounds job history. Failures are retained longer than
// successes to support post-hoc debugging.
type RetentionConfig struct {
	MaxCompleted  int    `toml:"max_completed"`
	MaxFailed     int    `toml:"max_failed"`
	PurgeSchedule string `toml:"purge_schedule"` // cron spec, e.g. "@every 10m"
}

type LoggingConfig struct {
	Level      string   `toml:"level"`  // debug|info|warn|error
	Output     []string `toml:"output"` // "stdout", "file"
	TimeFormat string   `toml:"time_format"`
}

// LLMConfig carries file-level provider fallbacks. The settings store
// overrides these per provider at runtime.
type LLMConfig struct {
	Provider    string  `toml:"provider"` // "gemini" or "claude"
	APIKey      string  `toml:"api_key"`
	BaseURL     string  `toml:"base_url"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
	MaxTokens   int     `toml:"max_tokens"`
	Timeout     string  `toml:"timeout"`
}

// EmbeddingConfig carries file-level embedding fallbacks.
type EmbeddingConfig struct {
	Enabled   bool   `toml:"enabled"`
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	Dimension int    `toml:"dimension"`
	RateLimit string `toml:"rate_limit"` // minimum spacing between calls
}

type MatchConfig struct {
	HardThreshold float64 `toml:"hard_threshold"`
	SoftThreshold float64 `toml:"soft_threshold"`
}

// NewDefaultConfig returns the built-in defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
			Catalog: "badger",
		},
		Queue: QueueConfig{
			Name:              "quotient_jobs",
			PollInterval:      "500ms",
			VisibilityTimeout: "2m",
			MaxReceive:        2,
			Concurrency:       2,
		},
		Retention: RetentionConfig{
			MaxCompleted:  50,
			MaxFailed:     200,
			PurgeSchedule: "@every 10m",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Output:     []string{"stdout", "file"},
			TimeFormat: "15:04:05",
		},
		LLM: LLMConfig{
			Provider:    "gemini",
			Temperature: 0.2,
			MaxTokens:   8192,
			Timeout:     "5m",
		},
		Embedding: EmbeddingConfig{
			Enabled:   true,
			Provider:  "gemini",
			Dimension: 768,
			RateLimit: "300ms",
		},
		Match: MatchConfig{
			HardThreshold: 0.85,
			SoftThreshold: 0.60,
		},
	}
}

// LoadFromFiles loads configuration from defaults, then each file in order
// (later files override earlier ones), then environment variables.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)
	return config, nil
}

// applyEnvOverrides applies QUOTIENT_* environment variables over file values.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("QUOTIENT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("QUOTIENT_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("QUOTIENT_DATA_DIR"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("QUOTIENT_CATALOG_BACKEND"); v != "" {
		config.Storage.Catalog = v
	}
	if v := os.Getenv("QUOTIENT_POSTGRES_URL"); v != "" {
		config.Storage.Postgres.ConnString = v
	}
	if v := os.Getenv("QUOTIENT_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("QUOTIENT_LLM_PROVIDER"); v != "" {
		config.LLM.Provider = v
	}
	if v := os.Getenv("QUOTIENT_LLM_MODEL"); v != "" {
		config.LLM.Model = v
	}
	if v := os.Getenv("QUOTIENT_EMBEDDING_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			config.Embedding.Enabled = enabled
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides (highest priority).
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ParseDurationOr parses a duration string, falling back when empty or
// invalid.
func ParseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
