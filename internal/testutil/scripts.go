package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"testing"
	"time"
)

// FakeRuntime describes a shell script standing in for a docker or podman
// executable.
type FakeRuntime struct {
	// Version is printed by --version.
	Version string

	// InfoExit, InfoStderr and InfoDelay shape the "info" probe.
	InfoExit   int
	InfoStderr string
	InfoDelay  time.Duration

	// Rootless is printed by "info --format=..." queries.
	Rootless string
}

// RequirePOSIX skips tests that run shell scripts on Windows.
func RequirePOSIX(t *testing.T) {
	t.Helper()
	if goruntime.GOOS == "windows" {
		t.Skip("shell script runtimes are not supported on windows")
	}
}

// WriteScript writes an executable /bin/sh script into dir.
func WriteScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	RequirePOSIX(t)

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("failed to write script %s: %v", path, err)
	}
	return path
}

// WriteFakeRuntime writes an executable named name into dir that behaves
// like a container runtime CLI according to f.
func WriteFakeRuntime(t *testing.T, dir, name string, f FakeRuntime) string {
	t.Helper()

	var b strings.Builder
	b.WriteString("case \"$1\" in\n")
	fmt.Fprintf(&b, "--version)\n  echo %s\n  exit 0\n  ;;\n", shellQuote(f.Version))
	b.WriteString("info)\n")
	fmt.Fprintf(&b, "  if [ -n \"$2\" ]; then\n    echo %s\n    exit 0\n  fi\n", shellQuote(f.Rootless))
	if f.InfoDelay > 0 {
		fmt.Fprintf(&b, "  sleep %g\n", f.InfoDelay.Seconds())
	}
	if f.InfoStderr != "" {
		fmt.Fprintf(&b, "  echo %s >&2\n", shellQuote(f.InfoStderr))
	}
	fmt.Fprintf(&b, "  exit %d\n  ;;\nesac\nexit 64", f.InfoExit)

	return WriteScript(t, dir, name, b.String())
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
