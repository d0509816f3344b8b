// Package metrics provides Prometheus metrics for the correlation analysis run.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Veto reasons used as label values on events_vetoed_total.
const (
	VetoNotCalibrated = "not_calibrated"
	VetoOutOfRange    = "out_of_range"
	VetoNoBin         = "no_bin"
	VetoDuplicate     = "duplicate"
)

// Manager manages all Prometheus metrics for an analysis run.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Event flow
	eventsRead     prometheus.Counter
	eventsAccepted prometheus.Counter
	eventsVetoed   *prometheus.CounterVec
	sourceErrors   prometheus.Counter

	// Accumulation
	triggers *prometheus.CounterVec
	pairs    *prometheus.CounterVec

	// Finalize
	invalidBins      prometheus.Gauge
	finalizeDuration prometheus.Histogram
	runDuration      prometheus.Gauge

	// Queue
	queueSize     prometheus.Gauge
	queueCapacity prometheus.Gauge

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "azicorr",
		subsystem:        "analysis",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.eventsRead = auto.NewCounter(m.counterOpts("events_read_total", "Events read from the source"))
	m.eventsAccepted = auto.NewCounter(m.counterOpts("events_accepted_total", "Events assigned to a centrality bin and accumulated"))
	m.eventsVetoed = auto.NewCounterVec(m.counterOpts("events_vetoed_total", "Events vetoed before accumulation, by reason"), []string{"reason"})
	m.sourceErrors = auto.NewCounter(m.counterOpts("source_errors_total", "Events skipped because the source could not decode them"))

	m.triggers = auto.NewCounterVec(m.counterOpts("triggers_total", "Trigger particles counted, by centrality bin"), []string{"bin"})
	m.pairs = auto.NewCounterVec(m.counterOpts("pairs_total", "Trigger/associated pairs deposited, by centrality bin"), []string{"bin"})

	m.invalidBins = auto.NewGauge(m.gaugeOpts("invalid_bins", "Centrality bins left unnormalized because they saw no triggers"))
	m.finalizeDuration = auto.NewHistogram(m.histogramOpts("finalize_duration_milliseconds", "Time spent normalizing accumulated distributions"))
	m.runDuration = auto.NewGauge(m.gaugeOpts("run_duration_seconds", "Wall time of the last completed run"))

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Events waiting for a worker"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum number of queued events"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Number of correlation workers"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("worker_processing_latency_milliseconds", "Per-event selection and pairing latency"))
	m.workerErrors = auto.NewCounter(m.counterOpts("worker_errors_total", "Contributions a worker failed to apply"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint, method and status"),
		[]string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"),
		[]string{"endpoint", "method", "status_code"})
}

// RecordEventRead increments the events read counter.
func RecordEventRead() {
	globalManager.eventsRead.Inc()
}

// RecordEventAccepted increments the accepted events counter.
func RecordEventAccepted() {
	globalManager.eventsAccepted.Inc()
}

// RecordEventVetoed increments the vetoed events counter for reason.
func RecordEventVetoed(reason string) {
	globalManager.eventsVetoed.WithLabelValues(reason).Inc()
}

// RecordSourceError increments the source decode error counter.
func RecordSourceError() {
	globalManager.sourceErrors.Inc()
}

// RecordTriggers adds n trigger particles to the bin's counter.
func RecordTriggers(bin int, n int) {
	globalManager.triggers.WithLabelValues(strconv.Itoa(bin)).Add(float64(n))
}

// RecordPairs adds n deposited pairs to the bin's counter.
func RecordPairs(bin int, n int) {
	globalManager.pairs.WithLabelValues(strconv.Itoa(bin)).Add(float64(n))
}

// UpdateInvalidBins sets the number of bins left unnormalized.
func UpdateInvalidBins(n int) {
	globalManager.invalidBins.Set(float64(n))
}

// RecordFinalizeDuration records the normalization time in milliseconds.
func RecordFinalizeDuration(ms float64) {
	globalManager.finalizeDuration.Observe(ms)
}

// UpdateRunDuration sets the wall time of the last run in seconds.
func UpdateRunDuration(seconds float64) {
	globalManager.runDuration.Set(seconds)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
