// Package app provides the application context for harbor-ctl.
//
// This package manages application-wide dependencies using the functional
// options pattern, enabling easy testing through dependency injection.
//
// # App Context
//
// The App struct holds core dependencies:
//
//	type App struct {
//	    Paths    *config.Paths            // Configuration file locations
//	    Settings *config.Settings         // Operator settings
//	    Detector *runtime.Detector        // Runtime detection and cache
//	    Poller   *polling.Service         // Status polling
//	    Store    *config.PreferencesStore // User preferences
//	    Emitter  events.Emitter           // Event sink
//	}
//
// # Creating an App
//
// Use New with functional options. Anything not supplied is built from
// Settings:
//
//	// Production usage
//	a, err := app.New(app.WithSettings(settings), app.WithEmitter(sink))
//
//	// Testing with custom dependencies
//	a, err := app.New(
//	    app.WithPaths(config.NewPaths(dir)),
//	    app.WithDetector(detector),
//	    app.WithPoller(poller),
//	)
//
// # Runtime Selection
//
// ActiveRuntime honours an explicit selection while that runtime is still
// detected. Otherwise, with auto-select on, the first running runtime of
// the preferred kind wins, then any running runtime; failing that, the
// first runtime of the preferred kind.
package app
