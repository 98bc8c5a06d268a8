package system

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"

	shellquote "github.com/kballard/go-shellquote"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
)

// SpawnError reports a command that could not be started at all.
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// CommandLine renders a command and its arguments as a shell-quoted string.
func CommandLine(name string, args ...string) string {
	return shellquote.Join(append([]string{name}, args...)...)
}

// osExecutor implements CommandExecutor using real OS operations.
type osExecutor struct{}

type waitResult struct {
	err error
}

func (e *osExecutor) Run(ctx context.Context, name string, args ...string) (*Result, error) {
	line := CommandLine(name, args...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// exec.CommandContext would kill the child on cancellation; the child
	// is detached instead and only our interest in it is dropped.
	cmd := exec.Command(name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.Debug("running command", "cmd", line)
	if err := cmd.Start(); err != nil {
		return nil, &SpawnError{Command: line, Err: err}
	}

	// Buffered so the reaper never blocks once nobody is listening.
	done := make(chan waitResult, 1)
	go func() {
		done <- waitResult{err: cmd.Wait()}
	}()

	select {
	case res := <-done:
		result := &Result{Stdout: stdout.Bytes(), Stderr: stderr.Bytes()}
		if res.err != nil {
			var exitErr *exec.ExitError
			if !errors.As(res.err, &exitErr) {
				return nil, fmt.Errorf("%s: %w", line, res.err)
			}
			result.ExitCode = exitErr.ExitCode()
		}
		logging.Debug("command exited", "cmd", line, "exitCode", result.ExitCode)
		return result, nil

	case <-ctx.Done():
		logging.Debug("command abandoned", "cmd", line, "pid", cmd.Process.Pid, "error", ctx.Err())
		return nil, ctx.Err()
	}
}
