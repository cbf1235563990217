// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidMaxItems is returned when MAX_PLAYLIST_ITEMS is not positive.
	ErrInvalidMaxItems = errors.New("config: MAX_PLAYLIST_ITEMS must be positive")
	// ErrInvalidMinOutputBytes is returned when MIN_OUTPUT_BYTES is not positive.
	ErrInvalidMinOutputBytes = errors.New("config: MIN_OUTPUT_BYTES must be positive")
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	Port int `env:"PORT, default=8080" json:"port"`

	// Transcoder settings
	FFmpegPath  string `env:"FFMPEG_PATH, default=ffmpeg" json:"ffmpeg_path"`
	FFprobePath string `env:"FFPROBE_PATH, default=ffprobe" json:"ffprobe_path"`

	// Wall-clock budgets per external invocation, in seconds.
	ProbeTimeoutSec       int `env:"PROBE_TIMEOUT_SEC, default=30" json:"probe_timeout_sec"`
	AudioProbeTimeoutSec  int `env:"AUDIO_PROBE_TIMEOUT_SEC, default=10" json:"audio_probe_timeout_sec"`
	ClipEncodeTimeoutSec  int `env:"CLIP_ENCODE_TIMEOUT_SEC, default=300" json:"clip_encode_timeout_sec"`
	FinalEncodeTimeoutSec int `env:"FINAL_ENCODE_TIMEOUT_SEC, default=600" json:"final_encode_timeout_sec"`

	// Workspace settings
	WorkspaceRoot string `env:"WORKSPACE_ROOT" json:"workspace_root"`
	OutputDir     string `env:"OUTPUT_DIR" json:"output_dir"`

	// Processing settings
	MaxPlaylistItems int   `env:"MAX_PLAYLIST_ITEMS, default=5" json:"max_playlist_items"`
	MinOutputBytes   int64 `env:"MIN_OUTPUT_BYTES, default=1000" json:"min_output_bytes"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	S3Endpoint         string `env:"S3_ENDPOINT" json:"s3_endpoint,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// ProbeTimeout returns the dimension/duration probe budget.
func (c *Config) ProbeTimeout() time.Duration {
	return time.Duration(c.ProbeTimeoutSec) * time.Second
}

// AudioProbeTimeout returns the audio-presence probe budget.
func (c *Config) AudioProbeTimeout() time.Duration {
	return time.Duration(c.AudioProbeTimeoutSec) * time.Second
}

// ClipEncodeTimeout returns the per-clip encode budget.
func (c *Config) ClipEncodeTimeout() time.Duration {
	return time.Duration(c.ClipEncodeTimeoutSec) * time.Second
}

// FinalEncodeTimeout returns the budget for the finishing encode pass.
func (c *Config) FinalEncodeTimeout() time.Duration {
	return time.Duration(c.FinalEncodeTimeoutSec) * time.Second
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if cfg.WorkspaceRoot == "" {
		cfg.WorkspaceRoot = filepath.Join(os.TempDir(), "signage-engine")
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(cfg.WorkspaceRoot, "outputs")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MaxPlaylistItems <= 0 {
		return ErrInvalidMaxItems
	}
	if c.MinOutputBytes <= 0 {
		return ErrInvalidMinOutputBytes
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, FFmpegPath: %s, FFprobePath: %s, WorkspaceRoot: %s, OutputDir: %s, MaxPlaylistItems: %d, S3Bucket: %s, S3Region: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.FFmpegPath,
		c.FFprobePath,
		c.WorkspaceRoot,
		c.OutputDir,
		c.MaxPlaylistItems,
		c.S3Bucket,
		c.S3Region,
		c.LogFormat,
		c.LogLevel,
	)
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
