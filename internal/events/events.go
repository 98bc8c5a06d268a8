// Package events carries named signals from the core to whoever is
// listening: the terminal UI, log output, an audit file or Redis.
package events

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
)

// Event names.
const (
	RuntimeStatusUpdate = "runtime-status-update"
	DetectionStarted    = "detection-started"
	DetectionCompleted  = "detection-completed"
	RuntimeSelected     = "runtime-selected"
)

// Names lists every event name.
func Names() []string {
	return []string{RuntimeStatusUpdate, DetectionStarted, DetectionCompleted, RuntimeSelected}
}

// Emitter delivers an event. Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(ctx context.Context, name string, payload any) error
}

// Event is an emitted signal as seen by in-process consumers.
type Event struct {
	Name      string
	Timestamp time.Time
	Payload   any
}

// Func adapts a function to Emitter.
type Func func(ctx context.Context, name string, payload any) error

func (f Func) Emit(ctx context.Context, name string, payload any) error {
	return f(ctx, name, payload)
}

// Discard drops every event.
var Discard Emitter = Func(func(context.Context, string, any) error { return nil })

// Multi fans an event out to every emitter. All emitters are tried; their
// errors are joined.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, name string, payload any) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, name, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes events to the package logger at info level.
type Log struct{}

func (Log) Emit(_ context.Context, name string, payload any) error {
	logging.Info("event", "name", name, "payload", payload)
	return nil
}

// ErrChannelFull is returned by a Channel emitter whose buffer is full.
var ErrChannelFull = errors.New("event channel full")

// Channel delivers events to a buffered channel without blocking.
type Channel chan Event

func (c Channel) Emit(_ context.Context, name string, payload any) error {
	select {
	case c <- Event{Name: name, Timestamp: time.Now(), Payload: payload}:
		return nil
	default:
		return fmt.Errorf("%s: %w", name, ErrChannelFull)
	}
}
