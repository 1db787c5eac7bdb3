// Package metrics provides Prometheus metrics for the hyDATEr matching service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector of the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Matching
	compatComputations     prometheus.Counter
	matchesReturned        prometheus.Counter
	matchRequests          prometheus.Counter
	matchLatency           prometheus.Histogram
	candidateFetchFailures *prometheus.CounterVec

	// Ingestion
	ratingsIngested      prometheus.Counter
	ratingsInvalid       prometheus.Counter
	submissionsDuplicate prometheus.Counter
	totalRaters          prometheus.Gauge

	// Queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueueErrors *prometheus.CounterVec
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram

	// Store
	breakerTransitions *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// customRegistry keeps default Go collectors out of /healthz.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager registered on the configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hydrater",
		subsystem:        "matching",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() {
	m.compatComputations = m.counter("compatibility_computations_total", "Pairwise compatibility computations")
	m.matchesReturned = m.counter("matches_returned_total", "Matches returned across all match requests")
	m.matchRequests = m.counter("match_requests_total", "Match list requests served")
	m.matchLatency = m.histogram("match_latency_milliseconds", "Match list computation latency in milliseconds")
	m.candidateFetchFailures = m.counterVec("candidate_fetch_failures_total", "Candidates skipped because their ratings could not be fetched", "reason")

	m.ratingsIngested = m.counter("ratings_ingested_total", "Ratings written to the store")
	m.ratingsInvalid = m.counter("ratings_invalid_total", "Ratings rejected for out-of-range values")
	m.submissionsDuplicate = m.counter("submissions_duplicate_total", "Duplicate rating submissions detected")
	m.totalRaters = m.gauge("total_raters", "Users with at least one rating")

	m.queueSize = m.gauge("queue_size", "Current length of the submission queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the submission queue")
	m.queueEnqueueErrors = m.counterVec("queue_enqueue_errors_total", "Rejected enqueue attempts", "reason")
	m.workerCount = m.gauge("worker_count", "Ingestion workers running")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Submission processing latency in milliseconds")

	m.breakerTransitions = m.counterVec("store_breaker_transitions_total", "Rating store circuit breaker state changes", "to")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint, method and status", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "http_request_duration_milliseconds",
		Help: "HTTP request duration in milliseconds", ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordCompatibilityComputation counts one pairwise score.
func RecordCompatibilityComputation() { globalManager.compatComputations.Inc() }

// RecordMatchRequest records one match list request with its result size and latency.
func RecordMatchRequest(matches int, latencyMs float64) {
	globalManager.matchRequests.Inc()
	globalManager.matchesReturned.Add(float64(matches))
	globalManager.matchLatency.Observe(latencyMs)
}

// RecordCandidateFetchFailure counts a skipped candidate.
func RecordCandidateFetchFailure(reason string) {
	globalManager.candidateFetchFailures.WithLabelValues(reason).Inc()
}

// RecordRatingIngested counts a stored rating.
func RecordRatingIngested() { globalManager.ratingsIngested.Inc() }

// RecordRatingInvalid counts a rejected rating.
func RecordRatingInvalid() { globalManager.ratingsInvalid.Inc() }

// RecordSubmissionDuplicate counts a duplicate submission.
func RecordSubmissionDuplicate() { globalManager.submissionsDuplicate.Inc() }

// UpdateTotalRaters sets the number of users with ratings.
func UpdateTotalRaters(n int) { globalManager.totalRaters.Set(float64(n)) }

// UpdateQueueSize sets the current queue length.
func UpdateQueueSize(n int) { globalManager.queueSize.Set(float64(n)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(n int) { globalManager.queueCapacity.Set(float64(n)) }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError(reason string) {
	globalManager.queueEnqueueErrors.WithLabelValues(reason).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerProcessingLatency observes one submission's processing time.
func RecordWorkerProcessingLatency(latencyMs float64) { globalManager.workerLatency.Observe(latencyMs) }

// RecordBreakerTransition counts a circuit breaker state change.
func RecordBreakerTransition(to string) {
	globalManager.breakerTransitions.WithLabelValues(to).Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent counts an error raised by a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the registry the global manager writes to.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
