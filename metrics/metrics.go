package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheResult is the outcome of a cache lookup or store.
type CacheResult string

const (
	CacheHit   CacheResult = "hit"
	CacheMiss  CacheResult = "miss"
	CacheError CacheResult = "error"
	// CacheStored and CacheStoreError describe store attempts.
	CacheStored     CacheResult = "stored"
	CacheStoreError CacheResult = "store_error"
)

// Remote request outcomes. Failures use the normalized error kind.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
)

// Recorder publishes Prometheus metrics for facade activity.
type Recorder struct {
	gatherer prometheus.Gatherer
	handler  http.Handler

	cacheOperations *prometheus.CounterVec
	remoteRequests  *prometheus.CounterVec
	remoteLatency   *prometheus.HistogramVec
	cacheClears     *prometheus.CounterVec
}

// NewRecorder constructs a Prometheus-backed Recorder. When reg is nil a dedicated
// registry is created so multiple recorders can coexist.
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	reg.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	cacheOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carmarket",
		Subsystem: "cache",
		Name:      "lookups_total",
		Help:      "Cache lookups and stores performed by the query facade.",
	}, []string{"operation", "result"})

	cacheClears := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carmarket",
		Subsystem: "cache",
		Name:      "clears_total",
		Help:      "Cache clears and invalidations, by reason.",
	}, []string{"reason"})

	remoteRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "carmarket",
		Subsystem: "remote",
		Name:      "requests_total",
		Help:      "Remote queries issued by the query facade.",
	}, []string{"operation", "outcome"})

	remoteLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "carmarket",
		Subsystem: "remote",
		Name:      "request_duration_seconds",
		Help:      "Latency distribution for remote queries.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"operation", "outcome"})

	reg.MustRegister(cacheOperations, cacheClears, remoteRequests, remoteLatency)

	return &Recorder{
		gatherer:        reg,
		handler:         promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		cacheOperations: cacheOperations,
		cacheClears:     cacheClears,
		remoteRequests:  remoteRequests,
		remoteLatency:   remoteLatency,
	}
}

// Handler exposes the Prometheus HTTP handler for the recorder's registry.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics unavailable", http.StatusServiceUnavailable)
		})
	}
	return r.handler
}

// Gatherer returns the underlying Prometheus gatherer for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	if r == nil {
		return prometheus.NewRegistry()
	}
	return r.gatherer
}

// ObserveCache records a cache lookup or store for operation.
func (r *Recorder) ObserveCache(operation string, result CacheResult) {
	if r == nil {
		return
	}
	label := string(result)
	if label == "" {
		label = string(CacheMiss)
	}
	r.cacheOperations.WithLabelValues(normalizeLabel(operation), label).Inc()
}

// ObserveClear records a cache clear or tag invalidation.
func (r *Recorder) ObserveClear(reason string) {
	if r == nil {
		return
	}
	r.cacheClears.WithLabelValues(normalizeLabel(reason)).Inc()
}

// ObserveRemote records a completed remote request.
func (r *Recorder) ObserveRemote(operation, outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	op, out := normalizeLabel(operation), normalizeLabel(outcome)
	r.remoteRequests.WithLabelValues(op, out).Inc()
	r.remoteLatency.WithLabelValues(op, out).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "unknown"
	}
	return strings.ToLower(trimmed)
}
