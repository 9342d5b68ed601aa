// Package metrics provides Prometheus metrics for the pacing analysis service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Analysis
	profilesBuilt     prometheus.Counter
	profilesEmpty     prometheus.Counter
	aggregations      prometheus.Counter
	aggregationSize   prometheus.Histogram
	analysisLatency   *prometheus.HistogramVec
	binningRequests   *prometheus.CounterVec
	emptyResults      *prometheus.CounterVec
	missingCheckpoint prometheus.Counter

	// Store
	storeQueryLatency *prometheus.HistogramVec
	storeRunners      prometheus.Gauge

	// Profile cache
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Ingestion
	ingestRows        prometheus.Counter
	ingestRunners     prometheus.Counter
	ingestFormatErrs  prometheus.Counter
	ingestQualityErrs prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

// Service metric names are wser_pacing_*; latencies are in milliseconds.
const (
	Namespace = "wser"
	Subsystem = "pacing"
)

var latencyBucketsMs = []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500} //nolint:gochecknoglobals

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(
		WithNamespace(Namespace),
		WithSubsystem(Subsystem),
		WithHistogramBuckets(latencyBucketsMs),
		WithPrometheusRegistry(customRegistry),
	)
}

// NewManager creates a metrics manager and registers its collectors. Without
// options it registers unprefixed collectors with default buckets on the
// default registerer.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // collector declarations
	auto := promauto.With(m.registry)

	m.profilesBuilt = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "profiles_built_total",
		Help: "Single-runner pace profiles built",
	})
	m.profilesEmpty = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "profiles_empty_total",
		Help: "Profiles built for runners without any recorded split",
	})
	m.aggregations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "field_aggregations_total",
		Help: "Field pace aggregations computed",
	})
	m.aggregationSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "field_aggregation_runners",
		Help:    "Number of runners contributing to a field aggregation",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 200, 400, 800},
	})
	m.analysisLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "analysis_latency_milliseconds",
		Help:    "Latency of analysis operations in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"operation"})
	m.binningRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "binning_requests_total",
		Help: "Binning requests by kind (finish, age)",
	}, []string{"kind"})
	m.emptyResults = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "empty_results_total",
		Help: "Operations whose filter or search matched no runner",
	}, []string{"operation"})
	m.missingCheckpoint = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "missing_checkpoints_total",
		Help: "Checkpoint lookups that found no split",
	})

	m.storeQueryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "store_query_latency_milliseconds",
		Help:    "Store query latency in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"driver", "operation"})
	m.storeRunners = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "store_runners",
		Help: "Runners currently loaded in the store",
	})

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "profile_cache_hits_total",
		Help: "Profile cache hits",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "profile_cache_misses_total",
		Help: "Profile cache misses",
	})

	m.ingestRows = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_rows_total",
		Help: "CSV rows read by ingestion",
	})
	m.ingestRunners = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_runners_total",
		Help: "Runners written to the store by ingestion",
	})
	m.ingestFormatErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_format_errors_total",
		Help: "Malformed split times seen during ingestion",
	})
	m.ingestQualityErrs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "ingest_data_quality_errors_total",
		Help: "Runners rejected because elapsed times go backwards",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total",
		Help: "HTTP requests by endpoint, method and status",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name:    "http_request_duration_milliseconds",
		Help:    "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorRateByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total",
		Help: "Errors by component and type",
	}, []string{"component", "error_type"})
	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_endpoint_total",
		Help: "HTTP errors by endpoint, method and type",
	}, []string{"endpoint", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_memory_usage_bytes",
		Help: "Heap bytes allocated",
	})
	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_goroutine_count",
		Help: "Number of goroutines",
	})
}

// RecordProfileBuilt counts a built profile; empty marks a runner without splits.
func RecordProfileBuilt(empty bool) {
	globalManager.profilesBuilt.Inc()
	if empty {
		globalManager.profilesEmpty.Inc()
	}
}

// RecordAggregation counts a field aggregation over runners contributors.
func RecordAggregation(runners int) {
	globalManager.aggregations.Inc()
	globalManager.aggregationSize.Observe(float64(runners))
}

// RecordAnalysisLatency records the latency of an analysis operation.
func RecordAnalysisLatency(operation string, latencyMs float64) {
	globalManager.analysisLatency.WithLabelValues(operation).Observe(latencyMs)
}

// RecordBinning counts a binning request of the given kind.
func RecordBinning(kind string) {
	globalManager.binningRequests.WithLabelValues(kind).Inc()
}

// RecordEmptyResult counts an operation that matched no runner.
func RecordEmptyResult(operation string) {
	globalManager.emptyResults.WithLabelValues(operation).Inc()
}

// RecordMissingCheckpoint counts a checkpoint without a split.
func RecordMissingCheckpoint() {
	globalManager.missingCheckpoint.Inc()
}

// RecordStoreQueryLatency records a store query latency.
func RecordStoreQueryLatency(driver, operation string, latencyMs float64) {
	globalManager.storeQueryLatency.WithLabelValues(driver, operation).Observe(latencyMs)
}

// UpdateStoreRunners sets the number of runners in the store.
func UpdateStoreRunners(count int) {
	globalManager.storeRunners.Set(float64(count))
}

// RecordCacheHit counts a profile cache hit.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss counts a profile cache miss.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordIngestRow counts a CSV row read.
func RecordIngestRow() {
	globalManager.ingestRows.Inc()
}

// RecordIngestRunner counts a runner written to the store.
func RecordIngestRunner() {
	globalManager.ingestRunners.Inc()
}

// RecordIngestFormatError counts a malformed split time.
func RecordIngestFormatError() {
	globalManager.ingestFormatErrs.Inc()
}

// RecordIngestDataQualityError counts a rejected runner.
func RecordIngestDataQualityError() {
	globalManager.ingestQualityErrs.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// GetRegistry returns the custom registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
