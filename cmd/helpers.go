package cmd

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/firefly-engineering/harbor-ctl/internal/app"
	"github.com/firefly-engineering/harbor-ctl/internal/config"
	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/metrics"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

var (
	// application is built once per invocation by loadApp.
	application *app.App

	// registry holds this process's metrics, served by watch --metrics.
	registry *prometheus.Registry

	timeNow = time.Now
)

// loadApp resolves paths, loads settings and builds the application.
// Saved preferences override the cache lifetime and poll interval, and
// watch --interval overrides both.
func loadApp() error {
	paths, err := resolvePaths()
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings(system.DefaultFS(), paths.SettingsFile)
	if err != nil {
		return errors.ConfigError("failed to load settings", err)
	}

	store := config.NewPreferencesStore(system.DefaultFS(), paths.PreferencesFile)
	if store.Exists() {
		prefs, err := store.Load()
		if err != nil {
			logging.Warn("ignoring unreadable preferences", "path", store.Path(), "error", err)
		} else {
			settings.ApplyPreferences(prefs)
		}
	}
	if watchInterval > 0 {
		settings.PollIntervalSecs = watchInterval
	}

	registry = prometheus.NewRegistry()
	a, err := app.New(
		app.WithPaths(paths),
		app.WithSettings(settings),
		app.WithStore(store),
		app.WithMetrics(metrics.New(registry)),
	)
	if err != nil {
		return err
	}
	application = a
	logging.Debug("configuration loaded", "dir", paths.ConfigDir, "platform", a.Platform())
	return nil
}

func resolvePaths() (*config.Paths, error) {
	if configDir != "" {
		return config.NewPaths(configDir), nil
	}
	paths, err := config.DefaultPaths()
	if err != nil {
		return nil, errors.ConfigError("failed to resolve config directory", err)
	}
	return paths, nil
}

// parseKinds converts kind names, rejecting unknown ones.
func parseKinds(names []string) ([]runtime.Kind, error) {
	kinds := make([]runtime.Kind, 0, len(names))
	for _, n := range names {
		k, err := runtime.ParseKind(n)
		if err != nil {
			return nil, errors.ValidationError(err.Error())
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// auditLogPath returns the resolved audit log location, or "" when disabled.
func auditLogPath() (string, error) {
	if application.Settings.AuditLog == "" {
		return "", nil
	}
	p, err := application.Paths.Resolve(application.Settings.AuditLog)
	if err != nil {
		return "", errors.ConfigError("invalid audit_log", err)
	}
	return p, nil
}
