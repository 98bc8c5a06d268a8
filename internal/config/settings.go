package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

// Default settings values.
const (
	DefaultCacheTTLSecs       = 60
	DefaultDetectionTimeoutMs = 5000
	DefaultProbeTimeoutMs     = 3000
	DefaultPollIntervalSecs   = 5
	DefaultBackoff            = "random"
)

// BackoffNames lists the accepted backoff strategies.
var BackoffNames = []string{"random", "deterministic"}

// Settings are the operator-facing knobs read from settings.toml.
type Settings struct {
	CacheTTLSecs       int      `toml:"cache_ttl_secs"`
	DetectionTimeoutMs int      `toml:"detection_timeout_ms"`
	ProbeTimeoutMs     int      `toml:"probe_timeout_ms"`
	PollIntervalSecs   int      `toml:"poll_interval_secs"`
	Backoff            string   `toml:"backoff"`
	ExtraSearchPaths   []string `toml:"extra_search_paths"`
	AuditLog           string   `toml:"audit_log"`

	Redis   RedisSettings   `toml:"redis"`
	Metrics MetricsSettings `toml:"metrics"`
}

// RedisSettings enables publishing events to Redis when Addr is set.
type RedisSettings struct {
	Addr          string `toml:"addr"`
	ChannelPrefix string `toml:"channel_prefix"`
}

// MetricsSettings enables the Prometheus endpoint when ListenAddr is set.
type MetricsSettings struct {
	ListenAddr string `toml:"listen_addr"`
}

// DefaultSettings returns the built-in settings.
func DefaultSettings() *Settings {
	return &Settings{
		CacheTTLSecs:       DefaultCacheTTLSecs,
		DetectionTimeoutMs: DefaultDetectionTimeoutMs,
		ProbeTimeoutMs:     DefaultProbeTimeoutMs,
		PollIntervalSecs:   DefaultPollIntervalSecs,
		Backoff:            DefaultBackoff,
	}
}

// ParseSettings decodes a settings document over the defaults.
func ParseSettings(data []byte) (*Settings, error) {
	s := DefaultSettings()
	md, err := toml.Decode(string(data), s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}
	for _, key := range md.Undecoded() {
		logging.Warn("ignoring unknown settings key", "key", key.String())
	}
	return s, nil
}

// LoadSettings reads settings from path, applies HARBOR_* environment
// overrides and validates the result. A missing file yields the defaults.
func LoadSettings(fsys system.FileSystem, path string) (*Settings, error) {
	s := DefaultSettings()

	data, err := fsys.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logging.Debug("no settings file, using defaults", "path", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read settings: %w", err)
	default:
		if s, err = ParseSettings(data); err != nil {
			return nil, err
		}
	}

	if err := s.ApplyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return s, nil
}

// ApplyEnv overrides settings from HARBOR_* variables.
func (s *Settings) ApplyEnv(getenv func(string) string) error {
	ints := []struct {
		name string
		dst  *int
	}{
		{"HARBOR_CACHE_TTL_SECS", &s.CacheTTLSecs},
		{"HARBOR_DETECTION_TIMEOUT_MS", &s.DetectionTimeoutMs},
		{"HARBOR_PROBE_TIMEOUT_MS", &s.ProbeTimeoutMs},
		{"HARBOR_POLL_INTERVAL_SECS", &s.PollIntervalSecs},
	}
	for _, v := range ints {
		raw := getenv(v.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid %s=%q: %w", v.name, raw, err)
		}
		*v.dst = n
	}

	if v := getenv("HARBOR_BACKOFF"); v != "" {
		s.Backoff = v
	}
	if v := getenv("HARBOR_REDIS_ADDR"); v != "" {
		s.Redis.Addr = v
	}
	if v := getenv("HARBOR_METRICS_ADDR"); v != "" {
		s.Metrics.ListenAddr = v
	}
	return nil
}

// Validate checks that the Settings are usable.
func (s *Settings) Validate() error {
	var errs []error
	positive := []struct {
		key string
		val int
	}{
		{"cache_ttl_secs", s.CacheTTLSecs},
		{"detection_timeout_ms", s.DetectionTimeoutMs},
		{"probe_timeout_ms", s.ProbeTimeoutMs},
		{"poll_interval_secs", s.PollIntervalSecs},
	}
	for _, p := range positive {
		if p.val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.key, p.val))
		}
	}
	if !slices.Contains(BackoffNames, s.Backoff) {
		errs = append(errs, fmt.Errorf("backoff must be one of %s, got %q", strings.Join(BackoffNames, ", "), s.Backoff))
	}
	return errors.Join(errs...)
}

// ApplyPreferences lets saved user preferences override the cache lifetime
// and poll interval. Non-positive preference values are ignored.
func (s *Settings) ApplyPreferences(p *Preferences) {
	if p == nil {
		return
	}
	if p.DetectionCacheTTL > 0 {
		s.CacheTTLSecs = p.DetectionCacheTTL
	}
	if p.StatusPollInterval > 0 {
		s.PollIntervalSecs = p.StatusPollInterval
	}
}

// CacheTTL returns the detection cache lifetime.
func (s *Settings) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSecs) * time.Second
}

// DetectionTimeout returns the per-kind detection budget.
func (s *Settings) DetectionTimeout() time.Duration {
	return time.Duration(s.DetectionTimeoutMs) * time.Millisecond
}

// ProbeTimeout returns the status probe timeout.
func (s *Settings) ProbeTimeout() time.Duration {
	return time.Duration(s.ProbeTimeoutMs) * time.Millisecond
}

// PollInterval returns the polling tick interval.
func (s *Settings) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalSecs) * time.Second
}
