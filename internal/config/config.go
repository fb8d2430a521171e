// Package config defines service configuration structures and loading hooks.
//
// Conventions:
//   - Defaults come from New; Load layers a YAML file and the environment on top.
//   - Validation errors wrap ErrInvalidConfig, loading errors wrap ErrLoadConfig.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Log output formats.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log records.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8788".
	Addr string `koanf:"addr"`

	// CatalogFile optionally replaces the built-in criteria catalog.
	CatalogFile string `koanf:"catalog_file"`

	// MaxSessions caps concurrently held sessions; 0 means unbounded.
	MaxSessions int `koanf:"max_sessions"`

	// AnalysisURL points at a remote summarization service. When empty the
	// Gemini generator is used directly.
	AnalysisURL string `koanf:"analysis_url"`

	// AnalysisTimeoutMS bounds a single summarization request.
	AnalysisTimeoutMS int `koanf:"analysis_timeout_ms"`

	// AnalysisRetries retries failed remote summarization calls.
	AnalysisRetries int `koanf:"analysis_retries"`

	// AnalysisWorkers sets the number of background analysis workers.
	AnalysisWorkers int `koanf:"analysis_workers"`

	// AnalysisQueueSize bounds pending analysis jobs.
	AnalysisQueueSize int `koanf:"analysis_queue_size"`

	// GeminiAPIKey enables the built-in analyze proxy.
	GeminiAPIKey string `koanf:"gemini_api_key"`

	// GeminiModel names the Gemini model.
	GeminiModel string `koanf:"gemini_model"`

	// SystemPrompt overrides the summarization instructions.
	SystemPrompt string `koanf:"system_prompt"`

	// CORSOrigin is echoed on analyze proxy responses.
	CORSOrigin string `koanf:"cors_origin"`

	// Version is stamped on exported snapshots.
	Version string `koanf:"version"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:          "info",
		LogFormat:         LogFormatText,
		Addr:              ":8788",
		MaxSessions:       1000,
		AnalysisTimeoutMS: 60_000,
		AnalysisWorkers:   4,
		AnalysisQueueSize: 64,
		GeminiModel:       "gemini-2.5-flash",
		CORSOrigin:        "*",
		Version:           "v0.0.0+dev",
	}
}

// AnalysisTimeout returns AnalysisTimeoutMS as a duration.
func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.AnalysisTimeoutMS) * time.Millisecond
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Addr) == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return fmt.Errorf("%w: log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("%w: max_sessions must not be negative", ErrInvalidConfig)
	}
	if c.AnalysisTimeoutMS <= 0 {
		return fmt.Errorf("%w: analysis_timeout_ms must be positive", ErrInvalidConfig)
	}
	if c.AnalysisWorkers <= 0 || c.AnalysisQueueSize <= 0 {
		return fmt.Errorf("%w: analysis_workers and analysis_queue_size must be positive", ErrInvalidConfig)
	}
	if c.AnalysisRetries < 0 {
		return fmt.Errorf("%w: analysis_retries must not be negative", ErrInvalidConfig)
	}
	return nil
}
