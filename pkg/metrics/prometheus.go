// Package metrics provides Prometheus metrics for the evaluation service.
package metrics

import (
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values for mutation kinds and outcomes.
const (
	KindScore    = "score"
	KindWeight   = "weight"
	KindEvidence = "evidence"
	KindPolicy   = "policy"
	KindPreset   = "preset"
	KindReset    = "reset"
	KindMeta     = "meta"

	ResultOK        = "ok"
	ResultMalformed = "malformed"

	OutcomeOK           = "ok"
	OutcomeTimeout      = "timeout"
	OutcomeServiceError = "service_error"
	OutcomeError        = "error"
)

// Manager owns the service's Prometheus collectors.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Sessions
	sessionsCreated prometheus.Counter
	sessionsDeleted prometheus.Counter
	sessionsActive  prometheus.Gauge
	mutations       *prometheus.CounterVec

	// Exchange
	imports       *prometheus.CounterVec
	importDropped prometheus.Counter
	importCoerced prometheus.Counter
	exports       prometheus.Counter

	// Analysis
	analysisRequests *prometheus.CounterVec
	analysisLatency  prometheus.Histogram
	analysisQueued   prometheus.Gauge
	analysisRejected *prometheus.CounterVec
	analysisWorkers  prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "evalmatrix",
		subsystem:        "engine",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		enabled:          true,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.sessionsCreated = auto.NewCounter(m.counter("sessions_created_total", "Total number of evaluation sessions created"))
	m.sessionsDeleted = auto.NewCounter(m.counter("sessions_deleted_total", "Total number of evaluation sessions deleted"))
	m.sessionsActive = auto.NewGauge(m.gauge("sessions_active", "Number of sessions currently held in memory"))
	m.mutations = auto.NewCounterVec(m.counter("session_mutations_total", "Session mutations by kind"), []string{"kind"})

	m.imports = auto.NewCounterVec(m.counter("imports_total", "Snapshot imports by result"), []string{"result"})
	m.importDropped = auto.NewCounter(m.counter("import_dropped_criteria_total", "Imported criteria discarded because the catalog does not know them"))
	m.importCoerced = auto.NewCounter(m.counter("import_coerced_fields_total", "Imported fields replaced by a default value"))
	m.exports = auto.NewCounter(m.counter("exports_total", "Snapshot exports"))

	m.analysisRequests = auto.NewCounterVec(m.counter("analysis_requests_total", "Summarization requests by outcome"), []string{"outcome"})
	m.analysisLatency = auto.NewHistogram(m.histogram("analysis_latency_milliseconds", "Summarization round trip latency in milliseconds"))
	m.analysisQueued = auto.NewGauge(m.gauge("analysis_queue_length", "Analysis jobs waiting for a worker"))
	m.analysisRejected = auto.NewCounterVec(m.counter("analysis_queue_rejected_total", "Analysis jobs refused by the queue"), []string{"reason"})
	m.analysisWorkers = auto.NewGauge(m.gauge("analysis_workers", "Number of analysis workers running"))

	m.httpRequests = auto.NewCounterVec(
		m.counter("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogram("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.errorsByEndpoint = auto.NewCounterVec(
		m.counter("errors_by_endpoint_total", "Total number of errors by endpoint"),
		[]string{"endpoint", "method", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_usage_bytes", "Heap memory in use in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutine_count", "Number of goroutines"))
}

// SessionCreated records a new session.
func (m *Manager) SessionCreated() {
	if m.enabled {
		m.sessionsCreated.Inc()
		m.sessionsActive.Inc()
	}
}

// SessionDeleted records a removed session.
func (m *Manager) SessionDeleted() {
	if m.enabled {
		m.sessionsDeleted.Inc()
		m.sessionsActive.Dec()
	}
}

// Mutation records a session change of the given kind.
func (m *Manager) Mutation(kind string) {
	if m.enabled {
		m.mutations.WithLabelValues(kind).Inc()
	}
}

// Import records an import attempt and its leniency counters.
func (m *Manager) Import(result string, dropped, coerced int) {
	if !m.enabled {
		return
	}
	m.imports.WithLabelValues(result).Inc()
	m.importDropped.Add(float64(dropped))
	m.importCoerced.Add(float64(coerced))
}

// Export records a snapshot export.
func (m *Manager) Export() {
	if m.enabled {
		m.exports.Inc()
	}
}

// Analysis records a summarization round trip.
func (m *Manager) Analysis(outcome string, latencyMs float64) {
	if !m.enabled {
		return
	}
	m.analysisRequests.WithLabelValues(outcome).Inc()
	m.analysisLatency.Observe(latencyMs)
}

// AnalysisQueue sets the analysis queue length.
func (m *Manager) AnalysisQueue(length int) {
	if m.enabled {
		m.analysisQueued.Set(float64(length))
	}
}

// AnalysisRejected counts a job the queue refused.
func (m *Manager) AnalysisRejected(reason string) {
	if m.enabled {
		m.analysisRejected.WithLabelValues(reason).Inc()
	}
}

// AnalysisWorkers sets the running worker count.
func (m *Manager) AnalysisWorkers(n int) {
	if m.enabled {
		m.analysisWorkers.Set(float64(n))
	}
}

// HTTPRequest records one served request.
func (m *Manager) HTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// ErrorByEndpoint records a failed request.
func (m *Manager) ErrorByEndpoint(endpoint, method, errorType string) {
	if m.enabled {
		m.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
	}
}

// RefreshSystem samples memory and goroutine gauges.
func (m *Manager) RefreshSystem() {
	if !m.enabled {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	m.systemMemoryUsage.Set(float64(ms.HeapAlloc))
	m.systemGoroutineCount.Set(float64(runtime.NumGoroutine()))
}

// Package-level helpers record on the global manager.

// RecordSessionCreated increments the created counter and active gauge.
func RecordSessionCreated() { globalManager.SessionCreated() }

// RecordSessionDeleted increments the deleted counter and lowers the active gauge.
func RecordSessionDeleted() { globalManager.SessionDeleted() }

// RecordMutation counts a session change.
func RecordMutation(kind string) { globalManager.Mutation(kind) }

// RecordImport counts an import.
func RecordImport(result string, dropped, coerced int) {
	globalManager.Import(result, dropped, coerced)
}

// RecordExport counts an export.
func RecordExport() { globalManager.Export() }

// RecordAnalysis counts a summarization call.
func RecordAnalysis(outcome string, latencyMs float64) { globalManager.Analysis(outcome, latencyMs) }

// UpdateAnalysisQueue sets the analysis queue length gauge.
func UpdateAnalysisQueue(length int) { globalManager.AnalysisQueue(length) }

// RecordAnalysisRejected counts a refused analysis job.
func RecordAnalysisRejected(reason string) { globalManager.AnalysisRejected(reason) }

// UpdateAnalysisWorkers sets the analysis worker gauge.
func UpdateAnalysisWorkers(n int) { globalManager.AnalysisWorkers(n) }

// RecordHTTPRequest records an HTTP request and its duration.
func RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	globalManager.HTTPRequest(endpoint, method, statusCode, durationMs)
}

// RecordErrorByEndpoint records an error with endpoint, method and type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.ErrorByEndpoint(endpoint, method, errorType)
}

// RefreshSystemMetrics samples runtime gauges.
func RefreshSystemMetrics() { globalManager.RefreshSystem() }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
