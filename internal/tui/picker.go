package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionSelect
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action  Action
	Runtime *runtime.Runtime
}

// runtimeItem implements list.Item for runtime display
type runtimeItem struct {
	rt       runtime.Runtime
	selected bool
}

func (i runtimeItem) Title() string {
	if i.selected {
		return i.rt.ID + " (selected)"
	}
	return i.rt.ID
}

func (i runtimeItem) Description() string {
	parts := []string{
		FormatStatus(i.rt.Status),
		i.rt.Kind.DisplayName() + " " + i.rt.Version.String(),
	}
	if i.rt.Mode != "" {
		parts = append(parts, string(i.rt.Mode))
	}
	if i.rt.IsWSL {
		parts = append(parts, "wsl")
	}
	parts = append(parts, truncatePath(i.rt.Path, 30))
	return strings.Join(parts, " | ")
}

func (i runtimeItem) FilterValue() string {
	return i.rt.ID
}

// Model is the bubbletea model for the runtime picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
}

// NewPicker creates a picker over runtimes. selectedID marks the current
// selection and moves the cursor to it.
func NewPicker(runtimes []runtime.Runtime, selectedID string) Model {
	items := make([]list.Item, len(runtimes))
	cursor := 0
	for i, rt := range runtimes {
		items[i] = runtimeItem{rt: rt, selected: rt.ID == selectedID}
		if rt.ID == selectedID {
			cursor = i
		}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "Harbor - Select Runtime"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle
	l.Select(cursor)

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(runtimeItem); ok {
				rt := item.rt
				m.result = PickerResult{Action: ActionSelect, Runtime: &rt}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc", "ctrl+c":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Select  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive runtime picker
func RunPicker(runtimes []runtime.Runtime, selectedID string) (PickerResult, error) {
	if len(runtimes) == 0 {
		return PickerResult{Action: ActionNone}, nil
	}

	m := NewPicker(runtimes, selectedID)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}

// SimplePicker is a non-interactive listing of runtimes
func SimplePicker(runtimes []runtime.Runtime, selectedID string) string {
	var sb strings.Builder

	sb.WriteString("Harbor - Runtimes\n")
	sb.WriteString(strings.Repeat("─", 60) + "\n\n")

	if len(runtimes) == 0 {
		sb.WriteString("No container runtimes found.\n")
		sb.WriteString("Install Docker or Podman, then run: harbor-ctl detect --refresh\n")
		return sb.String()
	}

	for i, rt := range runtimes {
		marker := " "
		if rt.ID == selectedID {
			marker = "*"
		}
		sb.WriteString(fmt.Sprintf("%d.%s %s %s\n", i+1, marker, StatusIcon(rt.Status), rt.ID))
		sb.WriteString(fmt.Sprintf("   %s %s | %s\n\n", rt.Kind.DisplayName(), rt.Version, truncatePath(rt.Path, 40)))
	}

	return sb.String()
}
