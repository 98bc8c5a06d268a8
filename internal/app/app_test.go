package app

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/firefly-engineering/harbor-ctl/internal/config"
	"github.com/firefly-engineering/harbor-ctl/internal/errors"
	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/polling"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

const (
	dockerPath = "/usr/bin/docker"
	podmanPath = "/usr/bin/podman"
	dockerID   = "docker-/usr/bin/docker"
	podmanID   = "podman-/usr/bin/podman"
)

type fixture struct {
	fs     *system.MockFS
	exec   *system.MockExecutor
	events events.Channel
	app    *App
}

func notOnPath(string) (string, error) {
	return "", exec.ErrNotFound
}

// newFixture builds an App over a mock host with Docker running and Podman
// installed but stopped.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		fs:     system.NewMockFS(),
		exec:   system.NewMockExecutor(),
		events: make(events.Channel, 32),
	}

	f.fs.AddExecutable(dockerPath)
	f.exec.AddOutput(dockerPath+" --version", "Docker version 24.0.7, build afdd53b")
	f.exec.AddOutput(dockerPath+" info", "Server Version: 24.0.7")

	f.fs.AddExecutable(podmanPath)
	f.exec.AddOutput(podmanPath+" --version", "podman version 4.8.0")
	f.exec.AddResponse(podmanPath+" info", system.MockResponse{ExitCode: 125, Stderr: []byte("Error: cannot connect")})
	f.exec.AddOutput(podmanPath+" info --format={{.Host.Security.Rootless}}", "true")

	loc := runtime.NewLocator(
		runtime.WithFileSystem(f.fs),
		runtime.WithGOOS("linux"),
		runtime.WithLookPath(notOnPath),
	)
	detector := runtime.NewDetector(runtime.WithLocator(loc), runtime.WithExecutor(f.exec))
	poller := polling.New(time.Hour, runtime.NewProber(f.exec),
		polling.WithBackoff(polling.BackoffFunc(func(string, int) bool { return false })))

	a, err := New(
		WithPaths(config.NewPaths("/cfg")),
		WithDetector(detector),
		WithPoller(poller),
		WithStore(config.NewPreferencesStore(f.fs, "/cfg/config.json")),
		WithEmitter(f.events),
		WithGOOS("linux"),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	f.app = a
	t.Cleanup(a.StopStatusPolling)
	return f
}

func (f *fixture) next(t *testing.T) events.Event {
	t.Helper()
	select {
	case ev := <-f.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return events.Event{}
	}
}

func TestNew_Defaults(t *testing.T) {
	a, err := New(WithPaths(config.NewPaths(t.TempDir())))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if a.Settings == nil || a.Detector == nil || a.Poller == nil || a.Store == nil || a.Emitter == nil {
		t.Fatalf("New() left dependencies unset: %+v", a)
	}
	if a.Poller.Interval() != 5*time.Second {
		t.Errorf("Poller.Interval() = %v, want 5s", a.Poller.Interval())
	}
	if a.Detector.Cache().TTL() != 60*time.Second {
		t.Errorf("cache TTL = %v, want 60s", a.Detector.Cache().TTL())
	}
	if a.Store.Path() != a.Paths.PreferencesFile {
		t.Errorf("Store.Path() = %q, want %q", a.Store.Path(), a.Paths.PreferencesFile)
	}
	if a.Platform() == "" {
		t.Error("Platform() should not be empty")
	}
}

func TestNew_FromSettings(t *testing.T) {
	s := config.DefaultSettings()
	s.PollIntervalSecs = 12
	s.CacheTTLSecs = 7

	a, err := New(WithPaths(config.NewPaths(t.TempDir())), WithSettings(s))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Poller.Interval() != 12*time.Second {
		t.Errorf("Poller.Interval() = %v, want 12s", a.Poller.Interval())
	}
	if a.Detector.Cache().TTL() != 7*time.Second {
		t.Errorf("cache TTL = %v, want 7s", a.Detector.Cache().TTL())
	}
}

func TestNew_InvalidBackoff(t *testing.T) {
	s := config.DefaultSettings()
	s.Backoff = "linear"

	_, err := New(WithPaths(config.NewPaths(t.TempDir())), WithSettings(s))
	if err == nil {
		t.Fatal("New() should reject an unknown backoff")
	}
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestPlatform(t *testing.T) {
	a, err := New(WithPaths(config.NewPaths("/cfg")), WithGOOS("windows"))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Platform() != "windows" {
		t.Errorf("Platform() = %q, want windows", a.Platform())
	}
}

func TestDetectRuntimes(t *testing.T) {
	f := newFixture(t)

	result := f.app.DetectRuntimes(context.Background())

	if len(result.Runtimes) != 2 {
		t.Fatalf("got %d runtimes, errors %+v", len(result.Runtimes), result.Errors)
	}

	started := f.next(t)
	if started.Name != events.DetectionStarted {
		t.Errorf("first event = %q, want %q", started.Name, events.DetectionStarted)
	}
	completed := f.next(t)
	if completed.Name != events.DetectionCompleted {
		t.Fatalf("second event = %q, want %q", completed.Name, events.DetectionCompleted)
	}
	payload, ok := completed.Payload.(runtime.DetectionResult)
	if !ok {
		t.Fatalf("completed payload is %T", completed.Payload)
	}
	if len(payload.Runtimes) != 2 {
		t.Errorf("completed payload has %d runtimes, want 2", len(payload.Runtimes))
	}
}

func TestDetectRuntimes_EmitFailureDoesNotFail(t *testing.T) {
	f := newFixture(t)
	f.app.Emitter = make(events.Channel) // unbuffered, always full

	result := f.app.DetectRuntimes(context.Background())
	if len(result.Runtimes) != 2 {
		t.Errorf("got %d runtimes, want 2", len(result.Runtimes))
	}
}

func TestClearDetectionCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	versionCmd := dockerPath + " --version"

	f.app.DetectRuntimes(ctx)
	f.app.DetectRuntimes(ctx)
	if n := f.exec.CommandCount(versionCmd); n != 1 {
		t.Fatalf("version queried %d times, want 1 (cached)", n)
	}

	f.app.ClearDetectionCache(runtime.KindDocker)
	f.app.DetectRuntimes(ctx)
	if n := f.exec.CommandCount(versionCmd); n != 2 {
		t.Errorf("version queried %d times after clearing docker, want 2", n)
	}
	if n := f.exec.CommandCount(podmanPath + " --version"); n != 1 {
		t.Errorf("podman version queried %d times, want 1", n)
	}

	f.app.ClearDetectionCache()
	f.app.DetectRuntimes(ctx)
	if n := f.exec.CommandCount(podmanPath + " --version"); n != 2 {
		t.Errorf("podman version queried %d times after clearing all, want 2", n)
	}
}

func TestPreferences_RoundTrip(t *testing.T) {
	f := newFixture(t)

	prefs, err := f.app.Preferences()
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if *prefs != *config.DefaultPreferences() {
		t.Errorf("Preferences() = %+v, want defaults", *prefs)
	}

	prefs.PreferredKind = runtime.KindPodman
	prefs.StatusPollInterval = 30
	if err := f.app.SetPreferences(prefs); err != nil {
		t.Fatalf("SetPreferences() error = %v", err)
	}

	got, err := f.app.Preferences()
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if *got != *prefs {
		t.Errorf("Preferences() = %+v, want %+v", *got, *prefs)
	}
}

func TestSetPreferences_Invalid(t *testing.T) {
	f := newFixture(t)

	prefs := config.DefaultPreferences()
	prefs.PreferredKind = "lxc"

	err := f.app.SetPreferences(prefs)
	if err == nil {
		t.Fatal("SetPreferences() should reject an unknown kind")
	}
	if code := errors.GetExitCode(err); code != errors.ExitConfigError {
		t.Errorf("exit code = %d, want %d", code, errors.ExitConfigError)
	}
}

func TestSelectRuntime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.app.SelectRuntime(ctx, podmanID); err != nil {
		t.Fatalf("SelectRuntime() error = %v", err)
	}

	prefs, err := f.app.Preferences()
	if err != nil {
		t.Fatalf("Preferences() error = %v", err)
	}
	if prefs.SelectedRuntimeID != podmanID {
		t.Errorf("SelectedRuntimeID = %q, want %q", prefs.SelectedRuntimeID, podmanID)
	}

	ev := f.next(t)
	if ev.Name != events.RuntimeSelected || ev.Payload != podmanID {
		t.Errorf("event = %s %v, want %s %s", ev.Name, ev.Payload, events.RuntimeSelected, podmanID)
	}
}

func TestSelectRuntime_Rejects(t *testing.T) {
	tests := []struct {
		name     string
		id       string
		wantCode int
	}{
		{"unknown id", "docker-/nowhere/docker", errors.ExitRuntimeNotFound},
		{"empty id", "", errors.ExitGeneralError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			err := f.app.SelectRuntime(context.Background(), tt.id)
			if err == nil {
				t.Fatal("SelectRuntime() should fail")
			}
			if code := errors.GetExitCode(err); code != tt.wantCode {
				t.Errorf("exit code = %d, want %d", code, tt.wantCode)
			}
			if f.fs.Exists("/cfg/config.json") {
				t.Error("rejected selection should not be persisted")
			}
		})
	}
}

func TestActiveRuntime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rt, err := f.app.ActiveRuntime(ctx)
	if err != nil {
		t.Fatalf("ActiveRuntime() error = %v", err)
	}
	if rt.ID != dockerID {
		t.Errorf("ActiveRuntime() = %s, want running docker", rt.ID)
	}

	if err := f.app.SelectRuntime(ctx, podmanID); err != nil {
		t.Fatalf("SelectRuntime() error = %v", err)
	}
	rt, err = f.app.ActiveRuntime(ctx)
	if err != nil {
		t.Fatalf("ActiveRuntime() error = %v", err)
	}
	if rt.ID != podmanID {
		t.Errorf("ActiveRuntime() = %s, want selected podman", rt.ID)
	}
}

func TestActiveRuntime_NoneDetected(t *testing.T) {
	loc := runtime.NewLocator(
		runtime.WithFileSystem(system.NewMockFS()),
		runtime.WithGOOS("linux"),
		runtime.WithLookPath(notOnPath),
	)
	a, err := New(
		WithPaths(config.NewPaths("/cfg")),
		WithDetector(runtime.NewDetector(runtime.WithLocator(loc), runtime.WithExecutor(system.NewMockExecutor()))),
		WithStore(config.NewPreferencesStore(system.NewMockFS(), "/cfg/config.json")),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = a.ActiveRuntime(context.Background())
	if code := errors.GetExitCode(err); code != errors.ExitNoRuntime {
		t.Errorf("exit code = %d, want %d (err %v)", code, errors.ExitNoRuntime, err)
	}
}

func TestChoose(t *testing.T) {
	docker := runtime.Runtime{ID: dockerID, Kind: runtime.KindDocker, Status: runtime.StatusStopped}
	podman := runtime.Runtime{ID: podmanID, Kind: runtime.KindPodman, Status: runtime.StatusRunning}
	dockerUp := docker
	dockerUp.Status = runtime.StatusRunning
	podmanDown := podman
	podmanDown.Status = runtime.StatusStopped

	prefs := func(mutate func(*config.Preferences)) *config.Preferences {
		p := config.DefaultPreferences()
		mutate(p)
		return p
	}

	tests := []struct {
		name  string
		list  []runtime.Runtime
		prefs *config.Preferences
		want  string
	}{
		{
			name:  "selected wins",
			list:  []runtime.Runtime{dockerUp, podman},
			prefs: prefs(func(p *config.Preferences) { p.SelectedRuntimeID = podmanID }),
			want:  podmanID,
		},
		{
			name:  "stale selection falls through",
			list:  []runtime.Runtime{dockerUp, podman},
			prefs: prefs(func(p *config.Preferences) { p.SelectedRuntimeID = "docker-/gone" }),
			want:  dockerID,
		},
		{
			name:  "running preferred kind",
			list:  []runtime.Runtime{podman, dockerUp},
			prefs: prefs(func(*config.Preferences) {}),
			want:  dockerID,
		},
		{
			name:  "any running when preferred is stopped",
			list:  []runtime.Runtime{docker, podman},
			prefs: prefs(func(*config.Preferences) {}),
			want:  podmanID,
		},
		{
			name:  "nothing running falls back to preferred kind",
			list:  []runtime.Runtime{podmanDown, docker},
			prefs: prefs(func(*config.Preferences) {}),
			want:  dockerID,
		},
		{
			name:  "auto-select off ignores status",
			list:  []runtime.Runtime{docker, podman},
			prefs: prefs(func(p *config.Preferences) { p.AutoSelectRunning = false }),
			want:  dockerID,
		},
		{
			name:  "no runtime of preferred kind",
			list:  []runtime.Runtime{podmanDown},
			prefs: prefs(func(*config.Preferences) {}),
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := choose(tt.list, tt.prefs)
			switch {
			case tt.want == "" && got != nil:
				t.Errorf("choose() = %s, want nil", got.ID)
			case tt.want != "" && (got == nil || got.ID != tt.want):
				t.Errorf("choose() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestStatusPolling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.app.StartStatusPolling(ctx); err != nil {
		t.Fatalf("StartStatusPolling() error = %v", err)
	}
	if !f.app.Poller.IsRunning() {
		t.Fatal("poller should be running")
	}

	err := f.app.StartStatusPolling(ctx)
	if code := errors.GetExitCode(err); code != errors.ExitPollingFailed {
		t.Errorf("second start exit code = %d, want %d", code, errors.ExitPollingFailed)
	}

	seen := map[string]runtime.Status{}
	for len(seen) < 2 {
		ev := f.next(t)
		if ev.Name != events.RuntimeStatusUpdate {
			continue
		}
		u := ev.Payload.(runtime.StatusUpdate)
		seen[u.RuntimeID] = u.Status
	}
	if seen[dockerID] != runtime.StatusRunning {
		t.Errorf("docker status = %s, want running", seen[dockerID])
	}
	if seen[podmanID] != runtime.StatusStopped {
		t.Errorf("podman status = %s, want stopped", seen[podmanID])
	}

	f.app.StopStatusPolling()
	select {
	case <-f.app.Poller.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("polling loop did not exit")
	}
	if f.app.Poller.IsRunning() {
		t.Error("poller should be stopped")
	}

	f.app.StopStatusPolling()
}
