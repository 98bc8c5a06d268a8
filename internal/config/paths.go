package config

import (
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"

	securejoin "github.com/cyphar/filepath-securejoin"
)

const (
	// AppDirName is the per-user configuration directory name.
	AppDirName = "harbormaster"
	// MacBundleID names the configuration directory on macOS.
	MacBundleID = "com.harbormaster.app"

	PreferencesFileName = "config.json"
	SettingsFileName    = "settings.toml"
	DefaultAuditLog     = "events.jsonl"
)

// Paths holds the configured file locations.
type Paths struct {
	ConfigDir       string
	PreferencesFile string
	SettingsFile    string
}

// NewPaths returns the file locations inside configDir.
func NewPaths(configDir string) *Paths {
	return &Paths{
		ConfigDir:       configDir,
		PreferencesFile: filepath.Join(configDir, PreferencesFileName),
		SettingsFile:    filepath.Join(configDir, SettingsFileName),
	}
}

// DefaultPaths returns the paths for the current user and platform.
func DefaultPaths() (*Paths, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to determine home directory: %w", err)
	}
	return NewPaths(DefaultConfigDir(goruntime.GOOS, os.Getenv, home)), nil
}

// DefaultConfigDir returns the per-user configuration directory on goos:
//
//	windows  %APPDATA%\harbormaster
//	darwin   ~/Library/Application Support/com.harbormaster.app
//	other    $XDG_CONFIG_HOME/harbormaster or ~/.config/harbormaster
func DefaultConfigDir(goos string, getenv func(string) string, home string) string {
	switch goos {
	case "windows":
		if appData := getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppDirName)
		}
		return filepath.Join(home, "AppData", "Roaming", AppDirName)
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", MacBundleID)
	default:
		if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, AppDirName)
		}
		return filepath.Join(home, ".config", AppDirName)
	}
}

// Resolve returns p unchanged when absolute, and otherwise joins it under
// the configuration directory without letting it escape.
func (p *Paths) Resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	if filepath.IsAbs(path) {
		return filepath.Clean(path), nil
	}
	resolved, err := securejoin.SecureJoin(p.ConfigDir, path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q under %s: %w", path, p.ConfigDir, err)
	}
	return resolved, nil
}
