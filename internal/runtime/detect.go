package runtime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/metrics"
	"github.com/firefly-engineering/harbor-ctl/internal/system"
)

// DefaultDetectionTimeout is the wall-clock budget of one detection pass.
const DefaultDetectionTimeout = 5 * time.Second

const (
	msgTimeout     = "Detection timeout exceeded"
	msgPermissions = "Executable lacks proper permissions"
)

// Detector finds and describes the container runtimes installed on the host.
type Detector struct {
	locator      *Locator
	exec         system.CommandExecutor
	prober       *Prober
	cache        *Cache
	timeout      time.Duration
	probeTimeout time.Duration
	kinds        []Kind
	metrics      *metrics.Metrics
	now          func() time.Time
}

// Option configures a Detector.
type Option func(*Detector)

// WithLocator sets the executable locator.
func WithLocator(l *Locator) Option {
	return func(d *Detector) {
		d.locator = l
	}
}

// WithExecutor sets the executor used for version, info and mode queries.
func WithExecutor(exec system.CommandExecutor) Option {
	return func(d *Detector) {
		d.exec = exec
	}
}

// WithCacheTTL sets how long detection results are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(d *Detector) {
		d.cache = NewCache(ttl)
	}
}

// WithTimeout sets the per-kind detection budget.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		d.timeout = timeout
	}
}

// WithProbeTimeout sets the timeout of the status probe used to seed status.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		d.probeTimeout = timeout
	}
}

// WithKinds restricts detection to the given kinds.
func WithKinds(kinds ...Kind) Option {
	return func(d *Detector) {
		d.kinds = kinds
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Detector) {
		d.metrics = m
	}
}

// NewDetector creates a Detector with a fresh cache.
func NewDetector(opts ...Option) *Detector {
	d := &Detector{
		timeout:      DefaultDetectionTimeout,
		probeTimeout: DefaultProbeTimeout,
		kinds:        Kinds(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.locator == nil {
		d.locator = NewLocator()
	}
	if d.exec == nil {
		d.exec = system.DefaultExecutor()
	}
	if d.cache == nil {
		d.cache = NewCache(DefaultCacheTTL)
	}
	d.prober = NewProber(d.exec)
	return d
}

// Cache returns the detection cache.
func (d *Detector) Cache() *Cache {
	return d.cache
}

// Kinds returns the kinds this detector looks for.
func (d *Detector) Kinds() []Kind {
	return append([]Kind(nil), d.kinds...)
}

// DetectKind returns the cached result for kind while it is fresh and
// otherwise runs a detection pass and caches its outcome.
func (d *Detector) DetectKind(ctx context.Context, kind Kind) DetectionResult {
	if cached, ok := d.cache.Get(kind); ok {
		d.metrics.CacheLookup(string(kind), true)
		logging.Debug("detection cache hit", "kind", kind, "runtimes", len(cached.Runtimes))
		return cached
	}
	d.metrics.CacheLookup(string(kind), false)

	result := d.detect(ctx, kind)
	d.cache.Set(kind, result)
	d.metrics.ObserveDetection(string(kind), time.Duration(result.DurationMs)*time.Millisecond,
		len(result.Runtimes), len(result.Errors))
	return result
}

// Detect runs DetectKind for every kind concurrently and merges the results.
// A failure for one kind never affects another.
func (d *Detector) Detect(ctx context.Context) DetectionResult {
	start := d.now()
	results := make([]DetectionResult, len(d.kinds))

	var g errgroup.Group
	for i, kind := range d.kinds {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					logging.Error("detection panicked", "kind", kind, "panic", r)
					results[i] = DetectionResult{
						DetectedAt: d.now(),
						Errors: []DetectionError{{
							Kind:    kind,
							Message: fmt.Sprintf("detection panicked: %v", r),
						}},
					}
				}
			}()
			results[i] = d.DetectKind(ctx, kind)
			return nil
		})
	}
	_ = g.Wait()

	merged := DetectionResult{DetectedAt: start}.Clone()
	for _, r := range results {
		merged.Runtimes = append(merged.Runtimes, r.Runtimes...)
		merged.Errors = append(merged.Errors, r.Errors...)
	}
	merged.DurationMs = d.now().Sub(start).Milliseconds()
	return merged
}

// DetectAll returns every runtime found across all kinds, in no
// particular order.
func (d *Detector) DetectAll(ctx context.Context) []Runtime {
	return d.Detect(ctx).Runtimes
}

// ClearCache forces the next detection of kind to run the full pipeline.
func (d *Detector) ClearCache(kind Kind) {
	d.cache.Clear(kind)
}

// ClearAllCaches forces the next detection of every kind to run.
func (d *Detector) ClearAllCaches() {
	d.cache.ClearAll()
}

// detect runs the pipeline for one kind:
// locate, verify, version, validate, probe, mode.
// The budget is checked at each stage boundary; running OS calls are
// bounded by the budget's context rather than interrupted.
func (d *Detector) detect(ctx context.Context, kind Kind) DetectionResult {
	start := d.now()
	result := DetectionResult{DetectedAt: start}.Clone()

	budget, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	rt, derr, found := d.pipeline(budget, kind)
	switch {
	case !found:
		logging.Debug("runtime not installed", "kind", kind)
	case derr != nil:
		logging.Debug("detection failed", "kind", kind, "path", derr.Path, "error", derr.Message)
		result.Errors = append(result.Errors, *derr)
	default:
		logging.Debug("detected runtime", "kind", kind, "id", rt.ID, "version", rt.Version.Full, "status", rt.Status)
		result.Runtimes = append(result.Runtimes, rt)
	}

	result.DurationMs = d.now().Sub(start).Milliseconds()
	return result
}

func (d *Detector) pipeline(budget context.Context, kind Kind) (Runtime, *DetectionError, bool) {
	fail := func(path, msg string) (Runtime, *DetectionError, bool) {
		return Runtime{}, &DetectionError{Kind: kind, Path: path, Message: msg}, true
	}
	expired := func() bool {
		return budget.Err() != nil
	}

	loc, ok := d.locator.Locate(kind)
	if !ok {
		return Runtime{}, nil, false
	}
	if expired() {
		return fail(loc.Path, msgTimeout)
	}

	if !d.locator.Verify(loc.Path) {
		return fail(loc.Path, msgPermissions)
	}
	if expired() {
		return fail(loc.Path, msgTimeout)
	}

	raw, err := d.queryVersion(budget, loc.Path)
	if expired() {
		return fail(loc.Path, msgTimeout)
	}
	if err != nil {
		return fail(loc.Path, fmt.Sprintf("Failed to get version: %v", err))
	}
	version, err := ParseVersion(raw)
	if err != nil {
		return fail(loc.Path, fmt.Sprintf("Failed to parse version: %v", err))
	}
	warn := !ValidateMinimum(version, kind)
	if warn {
		logging.Warn("runtime version below supported minimum",
			"kind", kind, "version", version.Full, "minimum", MinimumVersion(kind).Full)
	}

	status := d.prober.Probe(budget, loc.Path, d.probeTimeout)
	if expired() {
		return fail(loc.Path, msgTimeout)
	}

	now := d.now()
	rt := Runtime{
		ID:             RuntimeID(kind, loc.Path),
		Kind:           kind,
		Path:           loc.Path,
		Version:        version,
		Status:         status,
		LastChecked:    now,
		DetectedAt:     now,
		IsWSL:          loc.WSL || (kind == KindDocker && d.locator.goos == "linux" && strings.Contains(loc.Path, ".exe")),
		VersionWarning: warn,
	}
	if kind == KindPodman {
		rt.Mode, rt.ModeAssumed = d.podmanMode(budget, loc.Path)
	}
	return rt, nil, true
}

func (d *Detector) queryVersion(ctx context.Context, path string) (string, error) {
	res, err := d.exec.Run(ctx, path, "--version")
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		msg := strings.TrimSpace(string(res.Stderr))
		if msg == "" {
			msg = "no output"
		}
		return "", fmt.Errorf("exit status %d: %s", res.ExitCode, msg)
	}
	return strings.TrimSpace(string(res.Stdout)), nil
}

// podmanMode asks podman whether it runs rootless. When the answer cannot
// be determined the engine is assumed rootless and the second result is true.
func (d *Detector) podmanMode(ctx context.Context, path string) (Mode, bool) {
	res, err := d.exec.Run(ctx, path, "info", "--format={{.Host.Security.Rootless}}")
	if err == nil && res.ExitCode == 0 {
		switch strings.TrimSpace(string(res.Stdout)) {
		case "true":
			return ModeRootless, false
		case "false":
			return ModeRootful, false
		}
	}
	logging.Debug("could not determine podman mode, assuming rootless", "path", path, "error", err)
	return ModeRootless, true
}
