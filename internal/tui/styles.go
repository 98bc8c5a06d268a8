package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	runningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	unknownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// StatusIcon returns the glyph shown next to a runtime status.
func StatusIcon(s runtime.Status) string {
	switch s {
	case runtime.StatusRunning:
		return "✓"
	case runtime.StatusStopped:
		return "●"
	case runtime.StatusError:
		return "⚠"
	default:
		return "?"
	}
}

// FormatStatus renders a status with its glyph, e.g. "✓ running".
func FormatStatus(s runtime.Status) string {
	return StatusIcon(s) + " " + string(s)
}

func statusStyle(s runtime.Status) lipgloss.Style {
	switch s {
	case runtime.StatusRunning:
		return runningStyle
	case runtime.StatusStopped:
		return stoppedStyle
	case runtime.StatusError:
		return errorStyle
	default:
		return unknownStyle
	}
}

func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	return "..." + path[len(path)-maxLen+3:]
}
