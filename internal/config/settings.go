// Package config loads the daemon settings file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds the daemon configuration. All fields have working defaults,
// so a missing config file is not an error.
type Settings struct {
	// MPVPath is the mpv binary used for playback sessions.
	MPVPath string `yaml:"mpv_path"`
	// MPVArgs are extra arguments appended to every mpv invocation.
	MPVArgs []string `yaml:"mpv_args"`

	// TopologyPollMs is the display topology poll interval in milliseconds.
	TopologyPollMs int `yaml:"topology_poll_ms"`
	// OcclusionPollMs is the fullscreen-window scan interval in milliseconds.
	OcclusionPollMs int `yaml:"occlusion_poll_ms"`
	// OcclusionHoldMs is how long a display must stay occluded before its
	// wallpaper is paused. Resume is immediate.
	OcclusionHoldMs int `yaml:"occlusion_hold_ms"`
	// PowerPollMs is the AC power state poll interval in milliseconds.
	PowerPollMs int `yaml:"power_poll_ms"`
	// ReleaseTimeoutMs bounds how long a playback session may take to exit
	// before it is killed.
	ReleaseTimeoutMs int `yaml:"release_timeout_ms"`

	LogLevel string `yaml:"log_level"`
}

// ValidationError reports an invalid settings field.
type ValidationError struct {
	Path string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %v", e.Path, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// Defaults returns the built-in settings used when no config file exists.
func Defaults() *Settings {
	return &Settings{
		MPVPath:          "mpv",
		TopologyPollMs:   2000,
		OcclusionPollMs:  1000,
		OcclusionHoldMs:  300,
		PowerPollMs:      5000,
		ReleaseTimeoutMs: 3000,
		LogLevel:         "info",
	}
}

// DefaultConfigPath returns ~/.config/wallmotion/config.yaml.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "wallmotion", "config.yaml"), nil
}

// Load reads settings from the standard location, falling back to defaults
// when the file does not exist.
func Load() (*Settings, error) {
	path, err := DefaultConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFromPath(path)
}

// LoadFromPath reads settings from path. A missing file yields defaults.
func LoadFromPath(path string) (*Settings, error) {
	s := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks the effective settings.
func (s *Settings) Validate() error {
	if s.MPVPath == "" {
		return &ValidationError{Path: "mpv_path", Err: fmt.Errorf("mpv_path must not be empty")}
	}
	for path, v := range map[string]int{
		"topology_poll_ms":   s.TopologyPollMs,
		"occlusion_poll_ms":  s.OcclusionPollMs,
		"power_poll_ms":      s.PowerPollMs,
		"release_timeout_ms": s.ReleaseTimeoutMs,
	} {
		if v <= 0 {
			return &ValidationError{Path: path, Err: fmt.Errorf("must be > 0")}
		}
	}
	if s.OcclusionHoldMs < 0 {
		return &ValidationError{Path: "occlusion_hold_ms", Err: fmt.Errorf("must be >= 0")}
	}
	switch s.LogLevel {
	case "debug", "info", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warning, error")}
	}
	return nil
}

func (s *Settings) TopologyPoll() time.Duration  { return time.Duration(s.TopologyPollMs) * time.Millisecond }
func (s *Settings) OcclusionPoll() time.Duration { return time.Duration(s.OcclusionPollMs) * time.Millisecond }
func (s *Settings) OcclusionHold() time.Duration { return time.Duration(s.OcclusionHoldMs) * time.Millisecond }
func (s *Settings) PowerPoll() time.Duration     { return time.Duration(s.PowerPollMs) * time.Millisecond }
func (s *Settings) ReleaseTimeout() time.Duration {
	return time.Duration(s.ReleaseTimeoutMs) * time.Millisecond
}
