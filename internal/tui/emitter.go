package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

// Sender is the part of *tea.Program an emitter needs.
type Sender interface {
	Send(msg tea.Msg)
}

// ProgramEmitter forwards status and detection events to a running program.
type ProgramEmitter struct {
	sender Sender
}

// NewProgramEmitter returns an emitter delivering to s.
func NewProgramEmitter(s Sender) *ProgramEmitter {
	return &ProgramEmitter{sender: s}
}

var _ events.Emitter = (*ProgramEmitter)(nil)

// Emit translates known events into model messages; others are dropped.
func (e *ProgramEmitter) Emit(_ context.Context, name string, payload any) error {
	switch name {
	case events.RuntimeStatusUpdate:
		if u, ok := payload.(runtime.StatusUpdate); ok {
			e.sender.Send(StatusMsg(u))
		}
	case events.DetectionCompleted:
		if r, ok := payload.(runtime.DetectionResult); ok {
			e.sender.Send(DetectionMsg(r))
		}
	}
	return nil
}
