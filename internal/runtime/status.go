package runtime

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

// DefaultProbeTimeout bounds a single status probe.
const DefaultProbeTimeout = 3 * time.Second

// Prober checks whether a runtime's daemon is answering by running
// "<path> info".
type Prober struct {
	exec system.CommandExecutor
}

// NewProber creates a Prober. A nil executor uses the system default.
func NewProber(exec system.CommandExecutor) *Prober {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &Prober{exec: exec}
}

// Probe classifies the runtime at path:
//
//	exit 0                        running
//	non-zero, "permission denied" error
//	non-zero otherwise            stopped
//	could not start               stopped
//	timed out                     unknown
func (p *Prober) Probe(ctx context.Context, path string, timeout time.Duration) Status {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	res, err := p.exec.Run(ctx, path, "info")
	status := classify(res, err)
	logging.Debug("probed runtime", "path", path, "status", status, "error", err)
	return status
}

func classify(res *system.Result, err error) Status {
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return StatusUnknown
	case err != nil:
		return StatusStopped
	case res.ExitCode == 0:
		return StatusRunning
	case isPermissionDenied(res.Stderr):
		return StatusError
	default:
		return StatusStopped
	}
}

func isPermissionDenied(stderr []byte) bool {
	return strings.Contains(strings.ToLower(string(stderr)), "permission denied")
}
