// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"

	"github.com/KINGMAKER-SYSTEMS/content-posting-lab/internal/generator"
)

// Static errors for configuration validation.
var (
	// ErrInvalidPort is returned when PORT is outside 1..65535.
	ErrInvalidPort = errors.New("config: PORT must be between 1 and 65535")
	// ErrInvalidMaxInFlight is returned when MAX_IN_FLIGHT_UNITS is negative.
	ErrInvalidMaxInFlight = errors.New("config: MAX_IN_FLIGHT_UNITS must not be negative")
	// ErrMultipleMirrors is returned when both S3 and MinIO mirrors are configured.
	ErrMultipleMirrors = errors.New("config: configure either S3 or MinIO mirroring, not both")
	// ErrProjectsDirRequired is returned when PROJECTS_DIR is empty.
	ErrProjectsDirRequired = errors.New("config: PROJECTS_DIR is required")
)

// DefaultEnvFile is loaded by Load when no file is named.
const DefaultEnvFile = ".env"

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port           int      `env:"PORT, default=8080" json:"port"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS, default=*" json:"allowed_origins"`

	// Project layout
	ProjectsDir    string `env:"PROJECTS_DIR, default=projects" json:"projects_dir"`
	DefaultProject string `env:"DEFAULT_PROJECT, default=quick-test" json:"default_project"`

	// Provider credentials. A provider without its credential is not offered.
	XAIAPIKey         string `env:"XAI_API_KEY" json:"-"`         // Masked in JSON
	FALKey            string `env:"FAL_KEY" json:"-"`             // Masked in JSON
	LumaAPIKey        string `env:"LUMA_API_KEY" json:"-"`        // Masked in JSON
	ReplicateAPIToken string `env:"REPLICATE_API_TOKEN" json:"-"` // Masked in JSON
	OpenAIAPIKey      string `env:"OPENAI_API_KEY" json:"-"`      // Masked in JSON

	// Provider HTTP behaviour
	ProviderPollInterval time.Duration `env:"PROVIDER_POLL_INTERVAL, default=5s" json:"provider_poll_interval"`
	ProviderPollTimeout  time.Duration `env:"PROVIDER_POLL_TIMEOUT, default=10m" json:"provider_poll_timeout"`
	ProviderMaxRetries   int           `env:"PROVIDER_MAX_RETRIES, default=3" json:"provider_max_retries"`
	ProviderBaseBackoff  time.Duration `env:"PROVIDER_BASE_BACKOFF, default=1s" json:"provider_base_backoff"`
	ProviderCatalogFile  string        `env:"PROVIDER_CATALOG_FILE" json:"provider_catalog_file,omitempty"`

	// Processing settings
	FFmpegPath       string        `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath      string        `env:"FFPROBE_PATH" json:"ffprobe_path,omitempty"`
	MaxInFlightUnits int           `env:"MAX_IN_FLIGHT_UNITS, default=0" json:"max_in_flight_units"`
	DownloadTimeout  time.Duration `env:"DOWNLOAD_TIMEOUT, default=2m" json:"download_timeout"`

	// Optional S3 mirror settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Optional MinIO mirror settings
	MinIOEndpoint  string `env:"MINIO_ENDPOINT" json:"minio_endpoint,omitempty"`
	MinIOAccessKey string `env:"MINIO_ACCESS_KEY" json:"-"` // Masked in JSON
	MinIOSecretKey string `env:"MINIO_SECRET_KEY" json:"-"` // Masked in JSON
	MinIOBucket    string `env:"MINIO_BUCKET" json:"minio_bucket,omitempty"`
	MinIOUseSSL    bool   `env:"MINIO_USE_SSL, default=false" json:"minio_use_ssl"`

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// MinIOEnabled returns true if MinIO configuration is provided.
func (c *Config) MinIOEnabled() bool {
	return c.MinIOEndpoint != "" && c.MinIOBucket != ""
}

// Credential returns the secret configured for a provider credential key,
// or "" when it is not set.
func (c *Config) Credential(key string) string {
	switch key {
	case generator.CredentialXAI:
		return c.XAIAPIKey
	case generator.CredentialFAL:
		return c.FALKey
	case generator.CredentialLuma:
		return c.LumaAPIKey
	case generator.CredentialReplicate:
		return c.ReplicateAPIToken
	case generator.CredentialOpenAI:
		return c.OpenAIAPIKey
	default:
		return ""
	}
}

// Load reads configuration from environment variables using go-envconfig.
// Variables from envFiles (DefaultEnvFile when none are given) are loaded
// first; files that do not exist are skipped and variables already set in
// the environment win.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{DefaultEnvFile}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config: load %s: %w", f, err)
		}
	}

	cfg := &Config{}
	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return ErrInvalidPort
	}
	if strings.TrimSpace(c.ProjectsDir) == "" {
		return ErrProjectsDirRequired
	}
	if c.MaxInFlightUnits < 0 {
		return ErrInvalidMaxInFlight
	}
	if c.S3Enabled() && c.MinIOEnabled() {
		return ErrMultipleMirrors
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	return c.newLogger(os.Stdout)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.LogLevel)}

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, ProjectsDir: %s, DefaultProject: %s, Credentials: [%s], MaxInFlightUnits: %d, S3Bucket: %s, S3Region: %s, MinIOBucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.ProjectsDir,
		c.DefaultProject,
		strings.Join(c.configuredCredentials(), " "),
		c.MaxInFlightUnits,
		c.S3Bucket,
		c.S3Region,
		c.MinIOBucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// configuredCredentials lists credential keys that have a value, masked.
func (c *Config) configuredCredentials() []string {
	keys := []string{
		generator.CredentialXAI,
		generator.CredentialFAL,
		generator.CredentialLuma,
		generator.CredentialReplicate,
		generator.CredentialOpenAI,
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if v := c.Credential(k); v != "" {
			out = append(out, k+"="+mask(v))
		}
	}
	return out
}

// mask keeps the last four characters of long secrets.
func mask(secret string) string {
	if len(secret) <= 8 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
