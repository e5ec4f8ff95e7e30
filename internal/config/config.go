// Package config handles configuration loading, validation, and
// hot-reloading for keywitness.
package config

import (
	"fmt"
	"os"
	"strconv"

	"keywitness/internal/scoring"
	"keywitness/internal/window"
)

// Config holds the complete keywitness configuration.
type Config struct {
	// Window configuration for the aggregation stage.
	Window WindowConfig `toml:"window" json:"window" yaml:"window"`

	// Anomaly configuration for the live detector.
	Anomaly AnomalyConfig `toml:"anomaly" json:"anomaly" yaml:"anomaly"`

	// Scoring tunables for the certification engine.
	Scoring scoring.Config `toml:"scoring" json:"scoring" yaml:"scoring"`

	// Storage configuration for the session event store.
	Storage StorageConfig `toml:"storage" json:"storage" yaml:"storage"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`
}

// WindowConfig holds window aggregation tunables.
type WindowConfig struct {
	// SizeMs is the fixed window width in milliseconds.
	SizeMs int64 `toml:"size_ms" json:"size_ms" yaml:"size_ms"`
}

// AnomalyConfig holds live anomaly-detection tunables.
type AnomalyConfig struct {
	// RecentWindowCount is how many trailing windows the detector is
	// polled with on each completed window.
	RecentWindowCount int `toml:"recent_window_count" json:"recent_window_count" yaml:"recent_window_count"`
}

// StorageConfig holds persistence configuration.
type StorageConfig struct {
	// Path is the SQLite database file for session event logs.
	Path string `toml:"path" json:"path" yaml:"path"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is one of "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is "stdout", "stderr", or "file".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the log file when Output is "file".
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		Window: WindowConfig{
			SizeMs: window.DefaultSizeMs,
		},
		Anomaly: AnomalyConfig{
			RecentWindowCount: 12,
		},
		Scoring: scoring.DefaultConfig(),
		Storage: StorageConfig{
			Path: "keywitness.db",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.Window.SizeMs <= 0 {
		return fmt.Errorf("config: window.size_ms must be positive, got %d", c.Window.SizeMs)
	}
	if c.Anomaly.RecentWindowCount < 3 {
		return fmt.Errorf("config: anomaly.recent_window_count must be at least 3, got %d", c.Anomaly.RecentWindowCount)
	}

	s := c.Scoring
	if s.CVMin >= s.CVMax {
		return fmt.Errorf("config: scoring.cv_min must be below cv_max")
	}
	if s.ErrorRateMin >= s.ErrorRateMax {
		return fmt.Errorf("config: scoring.error_rate_min must be below error_rate_max")
	}
	if s.ThinkingPauseMin >= s.ThinkingPauseMax {
		return fmt.Errorf("config: scoring.thinking_pause_min must be below thinking_pause_max")
	}
	if s.EntropyMin <= 0 {
		return fmt.Errorf("config: scoring.entropy_min must be positive")
	}
	if s.CertifiedThreshold < 0 || s.CertifiedThreshold > 100 {
		return fmt.Errorf("config: scoring.certified_threshold must be in [0,100], got %d", s.CertifiedThreshold)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: logging.level %q is not one of debug/info/warn/error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("config: logging.format %q is not text or json", c.Logging.Format)
	}
	switch c.Logging.Output {
	case "stdout", "stderr", "file":
	default:
		return fmt.Errorf("config: logging.output %q is not stdout/stderr/file", c.Logging.Output)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("config: logging.file_path required when output is file")
	}

	return nil
}

// ApplyEnvOverrides applies KEYWITNESS_* environment variables on top
// of the loaded configuration.
func (c *Config) ApplyEnvOverrides() {
	if v := os.Getenv("KEYWITNESS_WINDOW_SIZE_MS"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Window.SizeMs = n
		}
	}
	if v := os.Getenv("KEYWITNESS_STORAGE_PATH"); v != "" {
		c.Storage.Path = v
	}
	if v := os.Getenv("KEYWITNESS_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("KEYWITNESS_CERTIFIED_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Scoring.CertifiedThreshold = n
		}
	}
}
