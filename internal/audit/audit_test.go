package audit

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

const dockerID = "docker-/usr/bin/docker"

func newTestLogger(t *testing.T) *Logger {
	t.Helper()
	return NewLogger(filepath.Join(t.TempDir(), "state", "events.jsonl"))
}

func TestLogger_LogAndEvents(t *testing.T) {
	logger := newTestLogger(t)
	now := time.Now().Truncate(time.Millisecond)

	logged := []Event{
		{Timestamp: now, Type: EventDetection, Details: "2 runtimes, 0 errors in 40ms"},
		{Timestamp: now.Add(time.Second), Type: EventStatus, Runtime: dockerID, Details: "running"},
		{Timestamp: now.Add(2 * time.Second), Type: EventSelection, Runtime: dockerID},
	}
	for _, e := range logged {
		if err := logger.Log(e); err != nil {
			t.Fatalf("Log failed: %v", err)
		}
	}

	all, err := logger.Events("")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(all) != len(logged) {
		t.Fatalf("got %d events, want %d", len(all), len(logged))
	}
	for i, e := range all {
		if e.Type != logged[i].Type || e.Runtime != logged[i].Runtime || e.Details != logged[i].Details {
			t.Errorf("event %d = %+v, want %+v", i, e, logged[i])
		}
		if !e.Timestamp.Equal(logged[i].Timestamp) {
			t.Errorf("event %d timestamp = %v, want %v", i, e.Timestamp, logged[i].Timestamp)
		}
	}

	docker, err := logger.Events(dockerID)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(docker) != 2 {
		t.Errorf("got %d docker events, want 2", len(docker))
	}
}

func TestLogger_EventsEmpty(t *testing.T) {
	logger := newTestLogger(t)

	result, err := logger.Events("")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(result) != 0 {
		t.Errorf("got %d events, want 0", len(result))
	}
}

func TestLogger_DefaultTimestamp(t *testing.T) {
	logger := newTestLogger(t)
	before := time.Now()

	if err := logger.Log(Event{Type: EventSelection, Runtime: dockerID}); err != nil {
		t.Fatalf("Log failed: %v", err)
	}

	result, _ := logger.Events(dockerID)
	if len(result) != 1 {
		t.Fatalf("got %d events, want 1", len(result))
	}
	if result[0].Timestamp.Before(before.Add(-time.Second)) {
		t.Error("timestamp should be set automatically")
	}
}

func TestLogger_SkipsMalformedLines(t *testing.T) {
	logger := newTestLogger(t)
	if err := logger.Log(Event{Type: EventSelection, Runtime: dockerID}); err != nil {
		t.Fatal(err)
	}

	f, err := os.OpenFile(logger.Path(), os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not json\n\n")
	f.Close()

	if err := logger.Log(Event{Type: EventSelection, Runtime: dockerID}); err != nil {
		t.Fatal(err)
	}

	result, err := logger.Events("")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(result) != 2 {
		t.Errorf("got %d events, want 2", len(result))
	}
}

func TestLogger_EmitRecordsTransitionsOnly(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()
	msg := "probe timed out"

	updates := []runtime.StatusUpdate{
		{RuntimeID: dockerID, Status: runtime.StatusRunning},
		{RuntimeID: dockerID, Status: runtime.StatusRunning},
		{RuntimeID: dockerID, Status: runtime.StatusUnknown, Error: &msg},
		{RuntimeID: dockerID, Status: runtime.StatusUnknown},
		{RuntimeID: dockerID, Status: runtime.StatusRunning},
	}
	for _, u := range updates {
		if err := logger.Emit(ctx, events.RuntimeStatusUpdate, u); err != nil {
			t.Fatalf("Emit failed: %v", err)
		}
	}

	result, err := logger.Events(dockerID)
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	want := []string{"running", "running -> unknown: probe timed out", "unknown -> running"}
	if len(result) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(result), len(want), result)
	}
	for i, e := range result {
		if e.Type != EventStatus || e.Details != want[i] {
			t.Errorf("event %d = %+v, want details %q", i, e, want[i])
		}
	}
}

func TestLogger_EmitOtherEvents(t *testing.T) {
	logger := newTestLogger(t)
	ctx := context.Background()

	result := runtime.DetectionResult{
		Runtimes:   []runtime.Runtime{{ID: dockerID}},
		DurationMs: 42,
	}
	steps := []struct {
		name    string
		payload any
	}{
		{events.DetectionStarted, nil},
		{events.DetectionCompleted, result},
		{events.RuntimeSelected, dockerID},
		{events.RuntimeSelected, 42},          // wrong payload type
		{events.RuntimeStatusUpdate, "bogus"}, // wrong payload type
		{"something-else", nil},
	}
	for _, s := range steps {
		if err := logger.Emit(ctx, s.name, s.payload); err != nil {
			t.Fatalf("Emit(%s) failed: %v", s.name, err)
		}
	}

	all, err := logger.Events("")
	if err != nil {
		t.Fatalf("Events failed: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("got %d events, want 2: %+v", len(all), all)
	}
	if all[0].Type != EventDetection || all[0].Details != "1 runtimes, 0 errors in 42ms" {
		t.Errorf("detection event = %+v", all[0])
	}
	if all[1].Type != EventSelection || all[1].Runtime != dockerID {
		t.Errorf("selection event = %+v", all[1])
	}
}

func TestLogger_Remove(t *testing.T) {
	logger := newTestLogger(t)
	if err := logger.Log(Event{Type: EventSelection}); err != nil {
		t.Fatal(err)
	}

	if err := logger.Remove(); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := logger.Remove(); err != nil {
		t.Errorf("second Remove should be a no-op, got %v", err)
	}
	result, _ := logger.Events("")
	if len(result) != 0 {
		t.Errorf("got %d events after Remove", len(result))
	}
}
