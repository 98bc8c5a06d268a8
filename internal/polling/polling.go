// Package polling periodically re-probes a set of runtimes and emits their
// status, backing off from runtimes that keep failing.
package polling

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/firefly-engineering/harbor-ctl/internal/events"
	"github.com/firefly-engineering/harbor-ctl/internal/logging"
	"github.com/firefly-engineering/harbor-ctl/internal/metrics"
	"github.com/firefly-engineering/harbor-ctl/internal/runtime"
)

const (
	// DefaultInterval is the time between ticks.
	DefaultInterval = 5 * time.Second

	// MaxFailures caps the consecutive failure counter.
	MaxFailures = 5
)

// ErrAlreadyRunning is returned by Start while a loop is active.
var ErrAlreadyRunning = errors.New("polling service already running")

// Prober checks a runtime executable's status.
type Prober interface {
	Probe(ctx context.Context, path string, timeout time.Duration) runtime.Status
}

// Service polls runtime status on a fixed interval.
type Service struct {
	interval     time.Duration
	probeTimeout time.Duration
	prober       Prober
	backoff      Backoff
	metrics      *metrics.Metrics
	now          func() time.Time

	running atomic.Bool

	mu       sync.Mutex
	runtimes []runtime.Runtime
	failures map[string]int
	statuses map[string]runtime.Status
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithBackoff sets the backoff strategy.
func WithBackoff(b Backoff) Option {
	return func(s *Service) {
		s.backoff = b
	}
}

// WithProbeTimeout sets the timeout of each probe.
func WithProbeTimeout(timeout time.Duration) Option {
	return func(s *Service) {
		s.probeTimeout = timeout
	}
}

// WithMetrics enables instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// New creates a stopped Service.
func New(interval time.Duration, prober Prober, opts ...Option) *Service {
	if interval <= 0 {
		interval = DefaultInterval
	}
	s := &Service{
		interval:     interval,
		probeTimeout: runtime.DefaultProbeTimeout,
		prober:       prober,
		backoff:      NewRandomBackoff(),
		now:          time.Now,
		failures:     make(map[string]int),
		statuses:     make(map[string]runtime.Status),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Interval returns the time between ticks.
func (s *Service) Interval() time.Duration {
	return s.interval
}

// SetRuntimes replaces the set of runtimes probed on each tick. Counters
// of runtimes that are no longer held are dropped.
func (s *Service) SetRuntimes(list []runtime.Runtime) {
	held := slices.Clone(list)
	ids := make(map[string]bool, len(held))
	for _, rt := range held {
		ids[rt.ID] = true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtimes = held
	for id := range s.failures {
		if !ids[id] {
			delete(s.failures, id)
			s.metrics.SetFailureCount(id, 0)
		}
	}
	for id := range s.statuses {
		if !ids[id] {
			delete(s.statuses, id)
		}
	}
}

// Runtimes returns the held runtimes with the most recently polled status
// applied.
func (s *Service) Runtimes() []runtime.Runtime {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := slices.Clone(s.runtimes)
	for i := range out {
		if st, ok := s.statuses[out[i].ID]; ok {
			out[i].Status = st
		}
	}
	return out
}

// FailureCount returns the consecutive failures recorded for a runtime.
func (s *Service) FailureCount(runtimeID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[runtimeID]
}

// IsRunning reports whether a polling loop is active.
func (s *Service) IsRunning() bool {
	return s.running.Load()
}

// Start launches the polling loop, delivering updates to emitter. The first
// tick happens immediately.
func (s *Service) Start(emitter events.Emitter) error {
	if emitter == nil {
		emitter = events.Discard
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running.Load() {
		return ErrAlreadyRunning
	}
	s.running.Store(true)

	prev := s.done
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.run(emitter, s.stop, s.done, prev)
	return nil
}

// Stop asks the loop to exit. A probe already in flight completes and its
// update is still emitted; the loop exits at the next tick boundary.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running.Load() {
		return
	}
	s.running.Store(false)
	close(s.stop)
	logging.Debug("status polling stop requested")
}

// Done returns a channel closed when the most recently started loop exits.
// It is nil before the first Start.
func (s *Service) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

func (s *Service) run(emitter events.Emitter, stop, done, prev chan struct{}) {
	defer close(done)

	// A restarted service must not overlap with the loop it replaces.
	if prev != nil {
		<-prev
	}

	logging.Debug("starting status polling", "interval", s.interval)
	ctx := context.Background()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			logging.Debug("status polling stopped")
			return
		default:
		}

		s.tick(ctx, emitter)

		select {
		case <-stop:
			logging.Debug("status polling stopped")
			return
		case <-ticker.C:
		}
	}
}

// tick probes every held runtime that backoff does not skip.
func (s *Service) tick(ctx context.Context, emitter events.Emitter) {
	s.metrics.Tick()

	s.mu.Lock()
	held := s.runtimes
	s.mu.Unlock()

	for _, rt := range held {
		if n := s.FailureCount(rt.ID); s.backoff.Skip(rt.ID, n) {
			logging.Debug("skipping probe (backoff)", "runtime", rt.ID, "failures", n)
			s.metrics.ProbeSkipped(rt.ID)
			continue
		}

		status := s.prober.Probe(ctx, rt.Path, s.probeTimeout)
		failures := s.record(rt.ID, status)
		s.metrics.ObserveProbe(string(rt.Kind), string(status))
		s.metrics.SetFailureCount(rt.ID, failures)

		update := runtime.StatusUpdate{
			RuntimeID: rt.ID,
			Status:    status,
			Timestamp: s.now(),
		}
		if err := emitter.Emit(ctx, events.RuntimeStatusUpdate, update); err != nil {
			logging.Warn("failed to emit status update", "runtime", rt.ID, "error", err)
			s.metrics.EmitError(events.RuntimeStatusUpdate)
		}
	}
}

// record stores the probe outcome and returns the new failure count.
func (s *Service) record(runtimeID string, status runtime.Status) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses[runtimeID] = status
	if !status.IsFailure() {
		delete(s.failures, runtimeID)
		return 0
	}
	n := min(s.failures[runtimeID]+1, MaxFailures)
	s.failures[runtimeID] = n
	return n
}
