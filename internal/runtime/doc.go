// Package runtime detects the Docker and Podman installations on a host
// and reports whether their daemons are answering.
//
// # Detection
//
// A Detector runs one pipeline per Kind:
//
//	locate -> verify -> --version -> validate -> info probe -> podman mode
//
// under a wall-clock budget that is checked between stages. Problems are
// collected as DetectionErrors in the DetectionResult; a kind that is not
// installed simply contributes nothing. Detect and DetectAll run every kind
// concurrently so a slow or broken engine never delays the others.
//
// Results are kept in a Cache for a TTL and reused by DetectKind until
// they expire or are cleared.
//
// # Status
//
// A Prober runs "<path> info" with a timeout and maps the outcome to a
// Status. Only permission problems are StatusError; a daemon that is not
// running is StatusStopped, and a probe that times out is StatusUnknown.
//
// # Testing
//
// Construct a Detector with WithExecutor(system.NewMockExecutor()) and a
// Locator backed by system.NewMockFS() to exercise the pipeline without
// touching the host.
package runtime
