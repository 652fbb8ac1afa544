package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"wallmotion/internal/scale"
)

// ErrConfigUnavailable marks a wallpaper store that exists but cannot be
// read or parsed. Callers start with an empty assignment set; the condition
// is never fatal.
var ErrConfigUnavailable = errors.New("wallpaper store unavailable")

// RecentMax bounds the recently-used list.
const RecentMax = 10

// Assignment binds one display to one video file and scale mode.
type Assignment struct {
	DisplayID string     `json:"-"`
	MediaPath string     `json:"media_path"`
	ScaleMode scale.Mode `json:"scale_mode"`
}

// fileFormat is the on-disk layout, keyed by stable display ID.
type fileFormat struct {
	Assignments        map[string]Assignment `json:"assignments"`
	RecentPaths        []string              `json:"recent_paths,omitempty"`
	PowerConnectedOnly bool                  `json:"power_connected_only,omitempty"`
}

// Store persists wallpaper assignments as JSON. Every operation reads the
// file fresh and writes atomically, so concurrent CLI invocations and the
// daemon do not clobber each other's whole file.
type Store struct {
	path string
}

// DefaultPath returns ~/.config/wallmotion/wallpapers.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "wallmotion", "wallpapers.json"), nil
}

// New creates a store at the given path. An empty path selects DefaultPath.
func New(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// Path returns the backing file location.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() (*fileFormat, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &fileFormat{Assignments: make(map[string]Assignment)}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrConfigUnavailable, err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", ErrConfigUnavailable, s.path, err)
	}
	if f.Assignments == nil {
		f.Assignments = make(map[string]Assignment)
	}
	return &f, nil
}

func (s *Store) save(f *fileFormat) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallpaper store: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write wallpaper store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace wallpaper store: %w", err)
	}
	return nil
}

// LoadAssignments returns all stored assignments ordered by display ID.
func (s *Store) LoadAssignments() ([]Assignment, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]Assignment, 0, len(f.Assignments))
	for id, a := range f.Assignments {
		a.DisplayID = id
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DisplayID < out[j].DisplayID
	})
	return out, nil
}

// SaveAssignment stores or replaces the assignment for its display and
// records the media path as recently used.
func (s *Store) SaveAssignment(a Assignment) error {
	if a.DisplayID == "" {
		return fmt.Errorf("assignment has no display id")
	}
	f, err := s.load()
	if err != nil {
		return err
	}
	f.Assignments[a.DisplayID] = Assignment{MediaPath: a.MediaPath, ScaleMode: a.ScaleMode}
	f.RecentPaths = pushRecent(f.RecentPaths, a.MediaPath)
	return s.save(f)
}

// ClearAssignment removes the assignment for a display. Clearing an
// unassigned display is a no-op.
func (s *Store) ClearAssignment(displayID string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := f.Assignments[displayID]; !ok {
		return nil
	}
	delete(f.Assignments, displayID)
	return s.save(f)
}

// Recents returns recently used media paths, newest first.
func (s *Store) Recents() ([]string, error) {
	f, err := s.load()
	if err != nil {
		return nil, err
	}
	if len(f.RecentPaths) > RecentMax {
		return f.RecentPaths[:RecentMax], nil
	}
	return f.RecentPaths, nil
}

// RemoveRecent drops a path from the recently-used list.
func (s *Store) RemoveRecent(path string) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	norm := filepath.Clean(path)
	kept := f.RecentPaths[:0]
	for _, p := range f.RecentPaths {
		if filepath.Clean(p) != norm {
			kept = append(kept, p)
		}
	}
	f.RecentPaths = kept
	return s.save(f)
}

// PowerConnectedOnly reports whether wallpapers should play only on AC
// power.
func (s *Store) PowerConnectedOnly() (bool, error) {
	f, err := s.load()
	if err != nil {
		return false, err
	}
	return f.PowerConnectedOnly, nil
}

// SetPowerConnectedOnly stores the AC-only preference.
func (s *Store) SetPowerConnectedOnly(enabled bool) error {
	f, err := s.load()
	if err != nil {
		return err
	}
	f.PowerConnectedOnly = enabled
	return s.save(f)
}

func pushRecent(recent []string, path string) []string {
	if path == "" {
		return recent
	}
	norm := filepath.Clean(path)
	out := []string{norm}
	for _, p := range recent {
		if filepath.Clean(p) == norm {
			continue
		}
		out = append(out, p)
	}
	if len(out) > RecentMax {
		out = out[:RecentMax]
	}
	return out
}
