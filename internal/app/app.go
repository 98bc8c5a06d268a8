// Package app wires detection, polling, preferences and event delivery
// into the operations exposed by harbor-ctl.
package app

import (
	"context"
	"fmt"
	goruntime "runtime"

	"github.com/firefly-engineering/harbor-ctl/internal/config"
	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/metrics"
	"github.com/firefly-engineering/harbor-ctl/internal/polling"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

// App holds the application dependencies
type App struct {
	// Paths holds the configured paths
	Paths *config.Paths

	// Settings are the loaded operator settings
	Settings *config.Settings

	// Detector finds runtimes and caches the results
	Detector *runtime.Detector

	// Poller keeps runtime statuses current
	Poller *polling.Service

	// Store persists user preferences
	Store *config.PreferencesStore

	// Emitter receives every application event
	Emitter events.Emitter

	metrics *metrics.Metrics
	goos    string
}

// Option is a function that configures the App
type Option func(*App)

// WithPaths sets custom paths
func WithPaths(paths *config.Paths) Option {
	return func(a *App) {
		a.Paths = paths
	}
}

// WithSettings sets the operator settings
func WithSettings(s *config.Settings) Option {
	return func(a *App) {
		a.Settings = s
	}
}

// WithDetector sets a custom detector
func WithDetector(d *runtime.Detector) Option {
	return func(a *App) {
		a.Detector = d
	}
}

// WithPoller sets a custom polling service
func WithPoller(p *polling.Service) Option {
	return func(a *App) {
		a.Poller = p
	}
}

// WithStore sets the preferences store
func WithStore(s *config.PreferencesStore) Option {
	return func(a *App) {
		a.Store = s
	}
}

// WithEmitter sets the event sink
func WithEmitter(e events.Emitter) Option {
	return func(a *App) {
		a.Emitter = e
	}
}

// WithMetrics instruments the default detector and poller
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *App) {
		a.metrics = m
	}
}

// WithGOOS overrides the reported platform
func WithGOOS(goos string) Option {
	return func(a *App) {
		a.goos = goos
	}
}

// New creates a new App with the given options. Dependencies not provided
// are built from Settings.
func New(opts ...Option) (*App, error) {
	a := &App{goos: goruntime.GOOS}
	for _, opt := range opts {
		opt(a)
	}

	if a.Paths == nil {
		paths, err := config.DefaultPaths()
		if err != nil {
			return nil, errors.ConfigError("failed to resolve config directory", err)
		}
		a.Paths = paths
	}
	if a.Settings == nil {
		a.Settings = config.DefaultSettings()
	}
	if a.Store == nil {
		a.Store = config.NewPreferencesStore(nil, a.Paths.PreferencesFile)
	}
	if a.Emitter == nil {
		a.Emitter = events.Discard
	}

	if a.Detector == nil {
		a.Detector = runtime.NewDetector(
			runtime.WithLocator(runtime.NewLocator(runtime.WithSearchDirs(a.Settings.ExtraSearchPaths...))),
			runtime.WithCacheTTL(a.Settings.CacheTTL()),
			runtime.WithTimeout(a.Settings.DetectionTimeout()),
			runtime.WithProbeTimeout(a.Settings.ProbeTimeout()),
			runtime.WithMetrics(a.metrics),
		)
	}

	if a.Poller == nil {
		backoff, ok := polling.ParseBackoff(a.Settings.Backoff)
		if !ok {
			return nil, errors.ConfigError("invalid settings", fmt.Errorf("unknown backoff %q", a.Settings.Backoff))
		}
		a.Poller = polling.New(a.Settings.PollInterval(), runtime.NewProber(nil),
			polling.WithBackoff(backoff),
			polling.WithProbeTimeout(a.Settings.ProbeTimeout()),
			polling.WithMetrics(a.metrics),
		)
	}

	return a, nil
}

// Platform returns the operating system the App reports runtimes for.
func (a *App) Platform() string {
	return a.goos
}

// DetectRuntimes runs detection for every kind, announcing the start and
// the merged result.
func (a *App) DetectRuntimes(ctx context.Context) runtime.DetectionResult {
	a.emit(ctx, events.DetectionStarted, a.Detector.Kinds())
	result := a.Detector.Detect(ctx)
	a.emit(ctx, events.DetectionCompleted, result)
	return result
}

// ClearDetectionCache drops cached results for kinds, or for every kind
// when none are given.
func (a *App) ClearDetectionCache(kinds ...runtime.Kind) {
	if len(kinds) == 0 {
		a.Detector.ClearAllCaches()
		logging.Debug("cleared all detection caches")
		return
	}
	for _, k := range kinds {
		a.Detector.ClearCache(k)
		logging.Debug("cleared detection cache", "kind", k)
	}
}

// Preferences returns the saved preferences, or the defaults.
func (a *App) Preferences() (*config.Preferences, error) {
	prefs, err := a.Store.Load()
	if err != nil {
		return nil, errors.ConfigError("failed to load preferences", err)
	}
	return prefs, nil
}

// SetPreferences validates and persists prefs.
func (a *App) SetPreferences(prefs *config.Preferences) error {
	if err := a.Store.Save(prefs); err != nil {
		return errors.ConfigError("failed to save preferences", err)
	}
	logging.Debug("preferences saved", "path", a.Store.Path())
	return nil
}

// SelectRuntime records id as the user's runtime. The id must belong to a
// currently detected runtime.
func (a *App) SelectRuntime(ctx context.Context, id string) error {
	if id == "" {
		return errors.ValidationError("runtime id is required")
	}

	found := false
	for _, rt := range a.Detector.DetectAll(ctx) {
		if rt.ID == id {
			found = true
			break
		}
	}
	if !found {
		return errors.RuntimeNotFound(id)
	}

	prefs, err := a.Preferences()
	if err != nil {
		return err
	}
	prefs.SelectedRuntimeID = id
	if err := a.SetPreferences(prefs); err != nil {
		return err
	}

	a.emit(ctx, events.RuntimeSelected, id)
	return nil
}

// ActiveRuntime returns the runtime harbor-ctl should use: the selected one
// if it is still present, otherwise one chosen from the preferences.
func (a *App) ActiveRuntime(ctx context.Context) (*runtime.Runtime, error) {
	prefs, err := a.Preferences()
	if err != nil {
		return nil, err
	}

	list := a.knownRuntimes(ctx)
	if len(list) == 0 {
		return nil, errors.NoRuntimeFound()
	}

	if rt := choose(list, prefs); rt != nil {
		return rt, nil
	}
	return nil, errors.NoRuntimeFound()
}

// choose applies the selection rules to list.
func choose(list []runtime.Runtime, prefs *config.Preferences) *runtime.Runtime {
	first := func(match func(runtime.Runtime) bool) *runtime.Runtime {
		for i := range list {
			if match(list[i]) {
				rt := list[i]
				return &rt
			}
		}
		return nil
	}

	if prefs.SelectedRuntimeID != "" {
		if rt := first(func(r runtime.Runtime) bool { return r.ID == prefs.SelectedRuntimeID }); rt != nil {
			return rt
		}
		logging.Debug("selected runtime no longer present", "id", prefs.SelectedRuntimeID)
	}

	if prefs.AutoSelectRunning {
		running := func(r runtime.Runtime) bool { return r.Status == runtime.StatusRunning }
		if rt := first(func(r runtime.Runtime) bool { return running(r) && r.Kind == prefs.PreferredKind }); rt != nil {
			return rt
		}
		if rt := first(running); rt != nil {
			return rt
		}
	}

	return first(func(r runtime.Runtime) bool { return r.Kind == prefs.PreferredKind })
}

// knownRuntimes prefers the poller's live view over a fresh detection.
func (a *App) knownRuntimes(ctx context.Context) []runtime.Runtime {
	if a.Poller.IsRunning() {
		if list := a.Poller.Runtimes(); len(list) > 0 {
			return list
		}
	}
	return a.Detector.DetectAll(ctx)
}

// StartStatusPolling detects runtimes and starts polling their status.
func (a *App) StartStatusPolling(ctx context.Context) error {
	if a.Poller.IsRunning() {
		return errors.PollingFailed(polling.ErrAlreadyRunning)
	}

	list := a.Detector.DetectAll(ctx)
	a.Poller.SetRuntimes(list)
	if err := a.Poller.Start(a.Emitter); err != nil {
		return errors.PollingFailed(err)
	}
	logging.Debug("status polling started", "runtimes", len(list), "interval", a.Poller.Interval())
	return nil
}

// StopStatusPolling stops the polling loop. It is a no-op when stopped.
func (a *App) StopStatusPolling() {
	a.Poller.Stop()
}

func (a *App) emit(ctx context.Context, name string, payload any) {
	if err := a.Emitter.Emit(ctx, name, payload); err != nil {
		logging.Warn("failed to emit event", "event", name, "error", err)
		a.metrics.EmitError(name)
	}
}
