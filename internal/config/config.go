// Package config provides the configuration structure for the
// audiobook-studio service.
package config

import (
	"fmt"
	"time"

	"github.com/book-expert/audiobook-studio/internal/synthesis"
	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Fallbacks applied when a field is absent from the TOML file.
const (
	defaultTimeoutSeconds = 300
	defaultWorkers        = 2
)

// NATSConfig holds the configuration for the NATS job surface.
type NATSConfig struct {
	URL                    string `toml:"url"`
	ScriptSubmittedSubject string `toml:"script_submitted_subject"`
	MergeRequestedSubject  string `toml:"merge_requested_subject"`
	RegenerateLineSubject  string `toml:"regenerate_line_subject"`
	StudioAdminSubject     string `toml:"studio_admin_subject"`
	AudiobookObjectBucket  string `toml:"audiobook_object_store_bucket"`
}

// SynthesisConfig holds the connection settings for the standalone
// synthesis service.
type SynthesisConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Workers        int    `toml:"workers"`
}

// Timeout returns the per-call synthesis timeout.
func (c SynthesisConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}

	return time.Duration(seconds) * time.Second
}

// WorkerCount returns the bounded worker pool size for bulk generation.
func (c SynthesisConfig) WorkerCount() int {
	if c.Workers <= 0 {
		return defaultWorkers
	}

	return c.Workers
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	ProjectsDir     string `toml:"projects_dir"`
	OutputDir       string `toml:"output_dir"`
	VoiceLibraryDir string `toml:"voice_library_dir"`
	BaseLogsDir     string `toml:"base_logs_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS       NATSConfig       `toml:"nats"`
	Synthesis  SynthesisConfig  `toml:"synthesis"`
	Paths      PathsConfig      `toml:"paths"`
	Generation synthesis.Params `toml:"generation"`
}

// Load loads the configuration for the audiobook-studio service.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
