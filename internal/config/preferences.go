package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

// Preferences are the user's persisted runtime choices.
type Preferences struct {
	SelectedRuntimeID  string       `json:"selectedRuntimeId,omitempty"`
	AutoSelectRunning  bool         `json:"autoSelectRunning"`
	PreferredKind      runtime.Kind `json:"preferredType"`
	DetectionCacheTTL  int          `json:"detectionCacheTTL"`
	StatusPollInterval int          `json:"statusPollInterval"`
}

// DefaultPreferences returns the preferences used when none are saved.
func DefaultPreferences() *Preferences {
	return &Preferences{
		AutoSelectRunning:  true,
		PreferredKind:      runtime.KindDocker,
		DetectionCacheTTL:  DefaultCacheTTLSecs,
		StatusPollInterval: DefaultPollIntervalSecs,
	}
}

// UnmarshalJSON accepts both camelCase and snake_case keys. Keys absent
// from data leave the receiver's current values in place.
func (p *Preferences) UnmarshalJSON(data []byte) error {
	var raw struct {
		SelectedRuntimeID      *string       `json:"selectedRuntimeId"`
		SelectedRuntimeIDSnake *string       `json:"selected_runtime_id"`
		AutoSelectRunning      *bool         `json:"autoSelectRunning"`
		AutoSelectRunningSnake *bool         `json:"auto_select_running"`
		PreferredKind          *runtime.Kind `json:"preferredType"`
		PreferredKindSnake     *runtime.Kind `json:"preferred_type"`
		CacheTTL               *int          `json:"detectionCacheTTL"`
		CacheTTLSnake          *int          `json:"detection_cache_ttl"`
		PollInterval           *int          `json:"statusPollInterval"`
		PollIntervalSnake      *int          `json:"status_poll_interval"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	assign(&p.SelectedRuntimeID, raw.SelectedRuntimeID, raw.SelectedRuntimeIDSnake)
	assign(&p.AutoSelectRunning, raw.AutoSelectRunning, raw.AutoSelectRunningSnake)
	assign(&p.PreferredKind, raw.PreferredKind, raw.PreferredKindSnake)
	assign(&p.DetectionCacheTTL, raw.CacheTTL, raw.CacheTTLSnake)
	assign(&p.StatusPollInterval, raw.PollInterval, raw.PollIntervalSnake)
	return nil
}

// assign copies the camelCase value if present, else the snake_case one.
func assign[T any](dst *T, camel, snake *T) {
	switch {
	case camel != nil:
		*dst = *camel
	case snake != nil:
		*dst = *snake
	}
}

// Validate checks that the Preferences are usable.
func (p *Preferences) Validate() error {
	if _, err := runtime.ParseKind(string(p.PreferredKind)); err != nil {
		return fmt.Errorf("preferredType: %w", err)
	}
	if p.DetectionCacheTTL <= 0 {
		return fmt.Errorf("detectionCacheTTL must be positive, got %d", p.DetectionCacheTTL)
	}
	if p.StatusPollInterval <= 0 {
		return fmt.Errorf("statusPollInterval must be positive, got %d", p.StatusPollInterval)
	}
	return nil
}

// PreferencesStore persists Preferences as JSON.
type PreferencesStore struct {
	fs   system.FileSystem
	path string
}

// NewPreferencesStore returns a store for the file at path. A nil fs uses
// the default file system.
func NewPreferencesStore(fsys system.FileSystem, path string) *PreferencesStore {
	if fsys == nil {
		fsys = system.DefaultFS()
	}
	return &PreferencesStore{fs: fsys, path: path}
}

// Path returns the preferences file location.
func (s *PreferencesStore) Path() string {
	return s.path
}

// Exists reports whether preferences have been saved.
func (s *PreferencesStore) Exists() bool {
	return s.fs.Exists(s.path)
}

// Load reads the preferences. A missing file yields the defaults.
func (s *PreferencesStore) Load() (*Preferences, error) {
	prefs := DefaultPreferences()

	data, err := s.fs.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logging.Debug("no preferences file, using defaults", "path", s.path)
		return prefs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read preferences: %w", err)
	}

	if err := json.Unmarshal(data, prefs); err != nil {
		return nil, fmt.Errorf("failed to parse preferences: %w", err)
	}
	return prefs, nil
}

// Save validates and writes the preferences through a temp file and rename
// so readers never see a partial document.
func (s *PreferencesStore) Save(prefs *Preferences) error {
	if err := prefs.Validate(); err != nil {
		return fmt.Errorf("invalid preferences: %w", err)
	}

	data, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write preferences: %w", err)
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace preferences: %w", err)
	}
	return nil
}
