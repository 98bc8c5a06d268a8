package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

// StatusMsg carries a polled status into the watch model.
type StatusMsg runtime.StatusUpdate

// DetectionMsg replaces the watched runtimes after a new detection pass.
type DetectionMsg runtime.DetectionResult

// WatchOptions configures the watch view.
type WatchOptions struct {
	// Interval is shown in the header.
	Interval time.Duration

	// Refresh runs a detection pass when the user presses r. Nil disables
	// the key.
	Refresh func() runtime.DetectionResult
}

var watchColumns = []table.Column{
	{Title: "STATUS", Width: 12},
	{Title: "RUNTIME", Width: 8},
	{Title: "VERSION", Width: 9},
	{Title: "MODE", Width: 9},
	{Title: "PATH", Width: 34},
	{Title: "CHECKED", Width: 9},
}

// WatchModel is the bubbletea model for the live status table
type WatchModel struct {
	table      table.Model
	runtimes   []runtime.Runtime
	index      map[string]int
	opts       WatchOptions
	updates    int
	lastUpdate time.Time
	lastError  string
	refreshing bool
	quitting   bool
}

// NewWatch creates a watch model over runtimes.
func NewWatch(runtimes []runtime.Runtime, opts WatchOptions) WatchModel {
	t := table.New(
		table.WithColumns(watchColumns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	styles.Selected = selectedStyle
	t.SetStyles(styles)

	m := WatchModel{table: t, opts: opts}
	m.setRuntimes(runtimes)
	return m
}

func (m *WatchModel) setRuntimes(runtimes []runtime.Runtime) {
	m.runtimes = append([]runtime.Runtime(nil), runtimes...)
	m.index = make(map[string]int, len(m.runtimes))
	for i, rt := range m.runtimes {
		m.index[rt.ID] = i
	}
	m.refreshRows()
}

func (m *WatchModel) refreshRows() {
	rows := make([]table.Row, len(m.runtimes))
	for i, rt := range m.runtimes {
		mode := string(rt.Mode)
		if mode == "" {
			mode = "-"
		}
		checked := "-"
		if !rt.LastChecked.IsZero() {
			checked = rt.LastChecked.Format("15:04:05")
		}
		rows[i] = table.Row{
			FormatStatus(rt.Status),
			string(rt.Kind),
			rt.Version.String(),
			mode,
			truncatePath(rt.Path, 34),
			checked,
		}
	}
	m.table.SetRows(rows)
}

func (m WatchModel) Init() tea.Cmd {
	return nil
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(max(msg.Height-8, 3))
		return m, nil

	case StatusMsg:
		i, ok := m.index[msg.RuntimeID]
		if !ok {
			return m, nil
		}
		m.runtimes[i].Status = msg.Status
		m.runtimes[i].LastChecked = msg.Timestamp
		m.lastError = ""
		if msg.Error != nil {
			m.lastError = fmt.Sprintf("%s: %s", msg.RuntimeID, *msg.Error)
		}
		m.updates++
		m.lastUpdate = msg.Timestamp
		m.refreshRows()
		return m, nil

	case DetectionMsg:
		m.refreshing = false
		m.setRuntimes(msg.Runtimes)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit

		case "r":
			if m.opts.Refresh == nil || m.refreshing {
				return m, nil
			}
			m.refreshing = true
			refresh := m.opts.Refresh
			return m, func() tea.Msg { return DetectionMsg(refresh()) }
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var sb strings.Builder
	title := "Harbor - Runtime Status"
	if m.opts.Interval > 0 {
		title += fmt.Sprintf(" (every %s)", m.opts.Interval)
	}
	sb.WriteString(titleStyle.Render(title))
	sb.WriteString("\n")

	if len(m.runtimes) == 0 {
		sb.WriteString("No container runtimes found.\n")
	} else {
		sb.WriteString(m.table.View())
		sb.WriteString("\n")
	}

	sb.WriteString(m.summary())
	if m.lastError != "" {
		sb.WriteString("\n" + errorStyle.Render(m.lastError))
	}

	help := "[↑/↓] Move  [q] Quit"
	if m.opts.Refresh != nil {
		help = "[↑/↓] Move  [r] Re-detect  [q] Quit"
	}
	sb.WriteString("\n" + helpStyle.Render(help))
	return sb.String()
}

// summary counts runtimes per status, e.g. "1 running  1 stopped".
func (m WatchModel) summary() string {
	counts := map[runtime.Status]int{}
	for _, rt := range m.runtimes {
		counts[rt.Status]++
	}

	var parts []string
	for _, s := range []runtime.Status{runtime.StatusRunning, runtime.StatusStopped, runtime.StatusError, runtime.StatusUnknown} {
		if counts[s] > 0 {
			parts = append(parts, statusStyle(s).Render(fmt.Sprintf("%d %s", counts[s], s)))
		}
	}
	line := strings.Join(parts, "  ")
	if m.refreshing {
		line += "  detecting..."
	}
	if !m.lastUpdate.IsZero() {
		line += lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("  last update %s", m.lastUpdate.Format("15:04:05")))
	}
	return line
}

// Runtimes returns the runtimes as currently displayed.
func (m WatchModel) Runtimes() []runtime.Runtime {
	return append([]runtime.Runtime(nil), m.runtimes...)
}

// Updates returns how many status messages have been applied.
func (m WatchModel) Updates() int {
	return m.updates
}

// RunWatch shows the live status table until the user quits or ctx ends.
// attach receives an emitter feeding the table and is typically used to
// start status polling.
func RunWatch(ctx context.Context, runtimes []runtime.Runtime, opts WatchOptions, attach func(events.Emitter) error) error {
	p := tea.NewProgram(NewWatch(runtimes, opts), tea.WithAltScreen(), tea.WithContext(ctx))

	if attach != nil {
		if err := attach(NewProgramEmitter(p)); err != nil {
			return err
		}
	}

	if _, err := p.Run(); err != nil {
		if ctx.Err() != nil && errors.Is(err, tea.ErrProgramKilled) {
			return nil
		}
		return err
	}
	return nil
}
