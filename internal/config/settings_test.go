package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	s, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if s.MPVPath != "mpv" {
		t.Errorf("MPVPath = %q, want mpv", s.MPVPath)
	}
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", s.LogLevel)
	}
	if s.ReleaseTimeout() != 3*time.Second {
		t.Errorf("ReleaseTimeout = %v, want 3s", s.ReleaseTimeout())
	}
}

func TestLoadFromPath_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("mpv_path: /opt/mpv/bin/mpv\nmpv_args: [\"--hwdec=no\"]\nocclusion_hold_ms: 0\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if s.MPVPath != "/opt/mpv/bin/mpv" {
		t.Errorf("MPVPath = %q", s.MPVPath)
	}
	if len(s.MPVArgs) != 1 || s.MPVArgs[0] != "--hwdec=no" {
		t.Errorf("MPVArgs = %v", s.MPVArgs)
	}
	if s.OcclusionHold() != 0 {
		t.Errorf("OcclusionHold = %v, want 0", s.OcclusionHold())
	}
	// Untouched fields keep defaults.
	if s.TopologyPollMs != 2000 {
		t.Errorf("TopologyPollMs = %d, want 2000", s.TopologyPollMs)
	}
}

func TestLoadFromPath_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("mpv_path: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFromPath(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Settings)
		path   string
	}{
		{"empty mpv_path", func(s *Settings) { s.MPVPath = "" }, "mpv_path"},
		{"zero poll", func(s *Settings) { s.OcclusionPollMs = 0 }, "occlusion_poll_ms"},
		{"negative hold", func(s *Settings) { s.OcclusionHoldMs = -1 }, "occlusion_hold_ms"},
		{"bad log level", func(s *Settings) { s.LogLevel = "trace" }, "log_level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := Defaults()
			tc.mutate(s)
			err := s.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error type %T, want *ValidationError", err)
			}
			if verr.Path != tc.path {
				t.Errorf("path = %q, want %q", verr.Path, tc.path)
			}
		})
	}
	if err := Defaults().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}
