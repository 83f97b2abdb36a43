// Package metrics provides Prometheus metrics for the recall retention service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the recall service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Ingestion
	eventsIngested  prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsRejected  *prometheus.CounterVec

	// Review log store
	storeAppends       prometheus.Counter
	storeAppendLatency prometheus.Histogram
	storeQueryLatency  prometheus.Histogram
	storeEvents        prometheus.Gauge

	// Retention reports
	reportsTotal     prometheus.Counter
	reportLatency    prometheus.Histogram
	reportBuckets    *prometheus.GaugeVec
	reportExclusions *prometheus.GaugeVec

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerErrors            prometheus.Counter
	workerProcessingLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "recall",
		subsystem:        "retention",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      make(map[string]string),
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
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gauge(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogram(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
		Buckets:     m.histogramBuckets,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.eventsIngested = auto.NewCounter(m.counter("events_ingested_total",
		"Total number of review log events accepted for ingestion"))
	m.eventsDuplicate = auto.NewCounter(m.counter("events_duplicate_total",
		"Total number of review log events dropped as duplicates"))
	m.eventsRejected = auto.NewCounterVec(m.counter("events_rejected_total",
		"Total number of review log events rejected before ingestion"),
		[]string{"reason"})

	m.storeAppends = auto.NewCounter(m.counter("store_appends_total",
		"Total number of events appended to the review log store"))
	m.storeAppendLatency = auto.NewHistogram(m.histogram("store_append_latency_milliseconds",
		"Review log append latency in milliseconds"))
	m.storeQueryLatency = auto.NewHistogram(m.histogram("store_query_latency_milliseconds",
		"Review log read latency in milliseconds"))
	m.storeEvents = auto.NewGauge(m.gauge("store_events",
		"Number of events held by the review log store"))

	m.reportsTotal = auto.NewCounter(m.counter("reports_total",
		"Total number of retention reports computed"))
	m.reportLatency = auto.NewHistogram(m.histogram("report_latency_milliseconds",
		"Retention report computation latency in milliseconds"))
	m.reportBuckets = auto.NewGaugeVec(m.gauge("report_bucket_count",
		"Bucket counts of the last retention report"),
		[]string{"window", "bucket"})
	m.reportExclusions = auto.NewGaugeVec(m.gauge("report_excluded_events",
		"Events left out of the last retention report by reason"),
		[]string{"reason"})

	m.queueSize = auto.NewGauge(m.gauge("queue_size",
		"Current size of the ingestion queue"))
	m.queueCapacity = auto.NewGauge(m.gauge("queue_capacity",
		"Maximum ingestion queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gauge("queue_utilization_ratio",
		"Queue utilization ratio (current size / capacity)"))
	m.queueEnqueued = auto.NewCounter(m.counter("queue_enqueue_total",
		"Total number of events enqueued"))
	m.queueDequeued = auto.NewCounter(m.counter("queue_dequeue_total",
		"Total number of events dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counter("queue_enqueue_errors_total",
		"Total number of enqueue failures"))

	m.workerCount = auto.NewGauge(m.gauge("worker_count",
		"Current number of ingestion workers"))
	m.workerErrors = auto.NewCounter(m.counter("worker_errors_total",
		"Total number of worker errors"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogram("worker_processing_latency_milliseconds",
		"Per-event worker processing latency in milliseconds"))

	m.httpRequests = auto.NewCounterVec(m.counter("http_requests_total",
		"Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogram("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(m.counter("errors_by_component_total",
		"Total number of errors by component"),
		[]string{"component", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(m.gauge("system_memory_bytes",
		"Heap bytes allocated by the process"))
	m.systemGoroutineCount = auto.NewGauge(m.gauge("system_goroutines",
		"Current number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(m.histogram("system_gc_pause_milliseconds",
		"Average garbage collection pause in milliseconds"))
}

// RecordEventIngested increments the ingested events counter.
func RecordEventIngested() {
	globalManager.eventsIngested.Inc()
}

// RecordEventDuplicate increments the duplicate events counter.
func RecordEventDuplicate() {
	globalManager.eventsDuplicate.Inc()
}

// RecordEventRejected counts an event refused before it reached the queue.
func RecordEventRejected(reason string) {
	globalManager.eventsRejected.WithLabelValues(reason).Inc()
}

// RecordStoreAppend records one append and its latency.
func RecordStoreAppend(latencyMs float64) {
	globalManager.storeAppends.Inc()
	globalManager.storeAppendLatency.Observe(latencyMs)
}

// RecordStoreQueryLatency records a full review log read.
func RecordStoreQueryLatency(latencyMs float64) {
	globalManager.storeQueryLatency.Observe(latencyMs)
}

// UpdateStoreEvents sets the number of stored events.
func UpdateStoreEvents(count int) {
	globalManager.storeEvents.Set(float64(count))
}

// RecordReport records one retention report computation.
func RecordReport(latencyMs float64) {
	globalManager.reportsTotal.Inc()
	globalManager.reportLatency.Observe(latencyMs)
}

// UpdateReportBucket publishes one counter of the last report.
func UpdateReportBucket(window, bucket string, count uint32) {
	globalManager.reportBuckets.WithLabelValues(window, bucket).Set(float64(count))
}

// UpdateReportExclusions publishes how many events of the last report were skipped for reason.
func UpdateReportExclusions(reason string, count uint64) {
	globalManager.reportExclusions.WithLabelValues(reason).Set(float64(count))
}

// UpdateQueueSize sets the current queue size and utilization.
func UpdateQueueSize(size, capacity int) {
	globalManager.queueSize.Set(float64(size))
	if capacity > 0 {
		globalManager.queueUtilization.Set(float64(size) / float64(capacity))
	}
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the allocated heap size.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
