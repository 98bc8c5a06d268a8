// Package audit records runtime events as JSON Lines in a single file.
// Status updates are only written when a runtime's status changes.
package audit

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

// EventType classifies an audit entry.
type EventType string

const (
	EventStatus    EventType = "status"
	EventDetection EventType = "detection"
	EventSelection EventType = "selection"
)

// Event represents a single audit log entry.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	Runtime   string    `json:"runtime,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// Logger appends audit events to a JSONL file. It implements
// events.Emitter.
type Logger struct {
	path string

	mu   sync.Mutex
	last map[string]runtime.Status
}

// NewLogger creates an audit logger writing to path.
func NewLogger(path string) *Logger {
	return &Logger{path: path, last: make(map[string]runtime.Status)}
}

// Path returns the log file location.
func (l *Logger) Path() string {
	return l.path
}

// Log appends an event to the audit log.
func (l *Logger) Log(event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	return l.write(event)
}

func (l *Logger) write(event Event) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("failed to create audit log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Emit records an event. Unknown event names and payloads are ignored.
func (l *Logger) Emit(_ context.Context, name string, payload any) error {
	switch name {
	case events.RuntimeStatusUpdate:
		u, ok := payload.(runtime.StatusUpdate)
		if !ok {
			return nil
		}
		return l.logTransition(u)

	case events.DetectionCompleted:
		r, ok := payload.(runtime.DetectionResult)
		if !ok {
			return nil
		}
		return l.Log(Event{
			Type:    EventDetection,
			Details: fmt.Sprintf("%d runtimes, %d errors in %dms", len(r.Runtimes), len(r.Errors), r.DurationMs),
		})

	case events.RuntimeSelected:
		id, ok := payload.(string)
		if !ok {
			return nil
		}
		return l.Log(Event{Type: EventSelection, Runtime: id})
	}
	return nil
}

func (l *Logger) logTransition(u runtime.StatusUpdate) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	prev, seen := l.last[u.RuntimeID]
	if seen && prev == u.Status {
		return nil
	}
	l.last[u.RuntimeID] = u.Status

	details := string(u.Status)
	if seen {
		details = fmt.Sprintf("%s -> %s", prev, u.Status)
	}
	if u.Error != nil {
		details += ": " + *u.Error
	}
	ts := u.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return l.write(Event{Timestamp: ts, Type: EventStatus, Runtime: u.RuntimeID, Details: details})
}

// Events reads the events for a runtime in chronological order. An empty
// id returns every event.
func (l *Logger) Events(runtimeID string) ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var out []Event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event Event
		if err := json.Unmarshal(line, &event); err != nil {
			continue // Skip malformed lines
		}
		if runtimeID != "" && event.Runtime != runtimeID {
			continue
		}
		out = append(out, event)
	}

	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("error reading audit log: %w", err)
	}

	return out, nil
}

// Remove deletes the audit log.
func (l *Logger) Remove() error {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
