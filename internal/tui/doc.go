// Package tui provides terminal user interface components for harbor-ctl.
//
// This package uses the Bubble Tea framework for the live status view of
// `harbor-ctl watch` and the runtime picker of `harbor-ctl prefs select`.
//
// # Watch View
//
// The watch model renders detected runtimes as a table and applies
// StatusMsg values as they arrive. A ProgramEmitter turns polling events
// into those messages:
//
//	err := tui.RunWatch(ctx, runtimes, tui.WatchOptions{Interval: 5 * time.Second},
//	    func(e events.Emitter) error { return poller.Start(e) })
//
// # Runtime Picker
//
//	result, err := tui.RunPicker(runtimes, prefs.SelectedRuntimeID)
//	if result.Action == tui.ActionSelect {
//	    // persist result.Runtime.ID
//	}
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
