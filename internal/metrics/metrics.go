// Package metrics exposes Prometheus instrumentation for detection, the
// detection cache, status probes and the polling loop.
//
// All recording methods are safe to call on a nil *Metrics, so components
// can be built without instrumentation.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "harbor"

// Metrics holds the collectors registered for one process.
type Metrics struct {
	DetectionDuration *prometheus.HistogramVec
	DetectionErrors   *prometheus.CounterVec
	RuntimesDetected  *prometheus.GaugeVec
	CacheLookups      *prometheus.CounterVec
	Probes            *prometheus.CounterVec
	ProbesSkipped     *prometheus.CounterVec
	FailureCount      *prometheus.GaugeVec
	EmitErrors        *prometheus.CounterVec
	PollTicks         prometheus.Counter
}

// New registers the collectors with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		DetectionDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "detection_duration_seconds",
				Help:      "Duration of uncached runtime detection passes",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12), // 5ms to ~10s
			},
			[]string{"kind"},
		),
		DetectionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detection_errors_total",
				Help:      "Detection errors reported per runtime kind",
			},
			[]string{"kind"},
		),
		RuntimesDetected: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runtimes_detected",
				Help:      "Runtimes found by the last detection pass",
			},
			[]string{"kind"},
		),
		CacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "detection_cache_lookups_total",
				Help:      "Detection cache lookups",
			},
			[]string{"kind", "result"}, // "hit", "miss"
		),
		Probes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_probes_total",
				Help:      "Status probes by resulting status",
			},
			[]string{"kind", "status"},
		),
		ProbesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "status_probes_skipped_total",
				Help:      "Probes skipped by backoff",
			},
			[]string{"runtime_id"},
		),
		FailureCount: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "runtime_consecutive_failures",
				Help:      "Consecutive failing probes per runtime",
			},
			[]string{"runtime_id"},
		),
		EmitErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_emit_errors_total",
				Help:      "Events that could not be delivered",
			},
			[]string{"event"},
		),
		PollTicks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "poll_ticks_total",
				Help:      "Polling loop ticks",
			},
		),
	}
}

// ObserveDetection records one uncached detection pass.
func (m *Metrics) ObserveDetection(kind string, d time.Duration, runtimes, errs int) {
	if m == nil {
		return
	}
	m.DetectionDuration.WithLabelValues(kind).Observe(d.Seconds())
	m.RuntimesDetected.WithLabelValues(kind).Set(float64(runtimes))
	if errs > 0 {
		m.DetectionErrors.WithLabelValues(kind).Add(float64(errs))
	}
}

// CacheLookup records a cache hit or miss.
func (m *Metrics) CacheLookup(kind string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(kind, result).Inc()
}

// ObserveProbe records the status a probe produced.
func (m *Metrics) ObserveProbe(kind, status string) {
	if m == nil {
		return
	}
	m.Probes.WithLabelValues(kind, status).Inc()
}

// ProbeSkipped records a probe skipped by backoff.
func (m *Metrics) ProbeSkipped(runtimeID string) {
	if m == nil {
		return
	}
	m.ProbesSkipped.WithLabelValues(runtimeID).Inc()
}

// SetFailureCount publishes a runtime's consecutive failure count.
func (m *Metrics) SetFailureCount(runtimeID string, n int) {
	if m == nil {
		return
	}
	m.FailureCount.WithLabelValues(runtimeID).Set(float64(n))
}

// EmitError records an event that could not be delivered.
func (m *Metrics) EmitError(event string) {
	if m == nil {
		return
	}
	m.EmitErrors.WithLabelValues(event).Inc()
}

// Tick records one polling loop tick.
func (m *Metrics) Tick() {
	if m == nil {
		return
	}
	m.PollTicks.Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// Server returns an HTTP server exposing /metrics on addr.
func Server(addr string, g prometheus.Gatherer) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(g))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok\n"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
