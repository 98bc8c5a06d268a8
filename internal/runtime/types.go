package runtime

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Kind identifies a container runtime family.
type Kind string

const (
	KindDocker Kind = "docker"
	KindPodman Kind = "podman"
)

// Kinds returns every supported runtime kind.
func Kinds() []Kind {
	return []Kind{KindDocker, KindPodman}
}

// ParseKind parses a kind name case-insensitively.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !slices.Contains(Kinds(), k) {
		return "", fmt.Errorf("unknown runtime kind %q (expected docker or podman)", s)
	}
	return k, nil
}

// Executable returns the executable name searched for on the host.
func (k Kind) Executable() string {
	return string(k)
}

// DisplayName returns the product name.
func (k Kind) DisplayName() string {
	switch k {
	case KindDocker:
		return "Docker"
	case KindPodman:
		return "Podman"
	default:
		return string(k)
	}
}

func (k Kind) String() string {
	return string(k)
}

// Status is the liveness of a runtime as seen by a probe.
type Status string

const (
	// StatusRunning means the daemon answered.
	StatusRunning Status = "running"
	// StatusStopped means the daemon is absent or refused; a normal state.
	StatusStopped Status = "stopped"
	// StatusError is reserved for permission problems.
	StatusError Status = "error"
	// StatusUnknown means the probe timed out.
	StatusUnknown Status = "unknown"
)

// IsFailure reports whether the status counts against a runtime's backoff.
func (s Status) IsFailure() bool {
	return s == StatusError || s == StatusUnknown
}

// Mode is the privilege mode of a Podman engine.
type Mode string

const (
	ModeRootful  Mode = "rootful"
	ModeRootless Mode = "rootless"
)

// Runtime is one installed container engine.
//
// Status is a snapshot taken at detection time; the polling service tracks
// live status separately and never writes back into detection results.
type Runtime struct {
	ID          string    `json:"id" yaml:"id"`
	Kind        Kind      `json:"type" yaml:"type"`
	Path        string    `json:"path" yaml:"path"`
	Version     Version   `json:"version" yaml:"version"`
	Status      Status    `json:"status" yaml:"status"`
	LastChecked time.Time `json:"lastChecked" yaml:"lastChecked"`
	DetectedAt  time.Time `json:"detectedAt" yaml:"detectedAt"`

	// Mode is only set for Podman. ModeAssumed marks the rootless fallback
	// used when the engine could not report its mode.
	Mode        Mode `json:"mode,omitempty" yaml:"mode,omitempty"`
	ModeAssumed bool `json:"modeAssumed,omitempty" yaml:"modeAssumed,omitempty"`

	IsWSL          bool   `json:"isWsl,omitempty" yaml:"isWsl,omitempty"`
	VersionWarning bool   `json:"versionWarning,omitempty" yaml:"versionWarning,omitempty"`
	Error          string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RuntimeID derives the stable identifier of the install at path.
func RuntimeID(kind Kind, path string) string {
	return fmt.Sprintf("%s-%s", kind, path)
}

// DetectionError is a non-fatal problem found while detecting one kind.
type DetectionError struct {
	Kind    Kind   `json:"runtime" yaml:"runtime"`
	Path    string `json:"path" yaml:"path"`
	Message string `json:"error" yaml:"error"`
}

func (e DetectionError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%s): %s", e.Kind, e.Path, e.Message)
}

// DetectionResult is the outcome of one detection pass.
type DetectionResult struct {
	Runtimes   []Runtime        `json:"runtimes" yaml:"runtimes"`
	DetectedAt time.Time        `json:"detectedAt" yaml:"detectedAt"`
	DurationMs int64            `json:"duration" yaml:"duration"`
	Errors     []DetectionError `json:"errors" yaml:"errors"`
}

// Clone returns a copy that shares no slices with r.
func (r DetectionResult) Clone() DetectionResult {
	out := r
	out.Runtimes = slices.Clone(r.Runtimes)
	out.Errors = slices.Clone(r.Errors)
	if out.Runtimes == nil {
		out.Runtimes = []Runtime{}
	}
	if out.Errors == nil {
		out.Errors = []DetectionError{}
	}
	return out
}

// Merge folds other into r, summing durations.
func (r DetectionResult) Merge(other DetectionResult) DetectionResult {
	out := r.Clone()
	out.Runtimes = append(out.Runtimes, other.Runtimes...)
	out.Errors = append(out.Errors, other.Errors...)
	out.DurationMs += other.DurationMs
	if other.DetectedAt.After(out.DetectedAt) {
		out.DetectedAt = other.DetectedAt
	}
	return out
}

// StatusUpdate is the payload of a runtime-status-update event.
type StatusUpdate struct {
	RuntimeID string    `json:"runtimeId" yaml:"runtimeId"`
	Status    Status    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Error     *string   `json:"error,omitempty" yaml:"error,omitempty"`
}
