// Package metrics provides Prometheus metrics for the tournament service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Outcome labels shared by the battle and replay counters.
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// Manager manages all Prometheus metrics for the tournament service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Battles
	battles        *prometheus.CounterVec
	battleDuration prometheus.Histogram
	replays        *prometheus.CounterVec
	replayDuration prometheus.Histogram

	// Compilation
	compiles       *prometheus.CounterVec
	compileLatency prometheus.Histogram

	// Poller
	pollCycles *prometheus.CounterVec
	pollItems  *prometheus.CounterVec

	// Blob store
	blobOperations *prometheus.CounterVec
	blobErrors     *prometheus.CounterVec

	// Discovery
	discoveryRepositories prometheus.Counter
	discoveryChanged      prometheus.Counter
	discoveryErrors       prometheus.Counter

	// State sizes
	registrySize prometheus.Gauge
	historySize  prometheus.Gauge

	scoreboardLatency prometheus.Histogram

	// Queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueueRate   prometheus.Counter
	queueDequeueRate   prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerIdleCount         prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrorRate         prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "roboarena",
		subsystem:        "tournament",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// RefreshInterval is how often gauge updaters should sample.
func (m *Manager) RefreshInterval() time.Duration {
	return m.refreshInterval
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}
}

func (m *Manager) histogramOpts(name, help string, buckets []float64) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     buckets,
		ConstLabels: m.customLabels,
	}
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)
	// Battles last minutes, not milliseconds.
	battleBuckets := []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200, 1800}

	m.battles = auto.NewCounterVec(
		m.counterOpts("battles_total", "Battle runs by outcome (completed, failed, skipped)"),
		[]string{"outcome"},
	)
	m.battleDuration = auto.NewHistogram(
		m.histogramOpts("battle_duration_seconds", "Wall-clock duration of completed battle runs", battleBuckets),
	)
	m.replays = auto.NewCounterVec(
		m.counterOpts("replays_total", "Recording replays by outcome (completed, failed)"),
		[]string{"outcome"},
	)
	m.replayDuration = auto.NewHistogram(
		m.histogramOpts("replay_duration_seconds", "Wall-clock duration of recording replays", battleBuckets),
	)

	m.compiles = auto.NewCounterVec(
		m.counterOpts("compiles_total", "Competitor compilations by language and result"),
		[]string{"language", "result"},
	)
	m.compileLatency = auto.NewHistogram(
		m.histogramOpts("compile_latency_milliseconds", "Competitor compilation latency in milliseconds",
			[]float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000}),
	)

	m.pollCycles = auto.NewCounterVec(
		m.counterOpts("poll_cycles_total", "Result store poll cycles by result (ok, list_failed)"),
		[]string{"result"},
	)
	m.pollItems = auto.NewCounterVec(
		m.counterOpts("poll_items_total", "Listed recordings by disposition (new, known, empty, failed)"),
		[]string{"disposition"},
	)

	m.blobOperations = auto.NewCounterVec(
		m.counterOpts("blob_operations_total", "Blob store operations by backend and operation"),
		[]string{"backend", "operation"},
	)
	m.blobErrors = auto.NewCounterVec(
		m.counterOpts("blob_errors_total", "Blob store operation errors by backend and operation"),
		[]string{"backend", "operation"},
	)

	m.discoveryRepositories = auto.NewCounter(
		m.counterOpts("discovery_repositories_total", "Repositories examined by discovery"),
	)
	m.discoveryChanged = auto.NewCounter(
		m.counterOpts("discovery_changed_total", "Competitors registered or replaced by discovery"),
	)
	m.discoveryErrors = auto.NewCounter(
		m.counterOpts("discovery_errors_total", "Discovery failures (cycle or repository)"),
	)

	m.registrySize = auto.NewGauge(
		m.gaugeOpts("registry_competitors", "Competitors currently registered"),
	)
	m.historySize = auto.NewGauge(
		m.gaugeOpts("history_battles", "Battles folded into the local history"),
	)
	m.scoreboardLatency = auto.NewHistogram(
		m.histogramOpts("scoreboard_compute_latency_milliseconds", "Scoreboard aggregation latency in milliseconds",
			m.histogramBuckets),
	)

	m.queueSize = auto.NewGauge(m.gaugeOpts("queue_size", "Pending battle requests"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("queue_capacity", "Maximum battle request queue capacity"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("queue_utilization_ratio", "Queue utilization ratio (size / capacity)"))
	m.queueEnqueueRate = auto.NewCounter(m.counterOpts("queue_enqueue_total", "Battle requests enqueued"))
	m.queueDequeueRate = auto.NewCounter(m.counterOpts("queue_dequeue_total", "Battle requests dequeued"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("queue_enqueue_errors_total", "Battle requests rejected by a full or closed queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("worker_count", "Configured battle workers"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("worker_active_count", "Battle workers currently running"))
	m.workerIdleCount = auto.NewGauge(m.gaugeOpts("worker_idle_count", "Battle workers waiting for requests"))
	m.workerProcessingLatency = auto.NewHistogram(
		m.histogramOpts("worker_processing_latency_milliseconds", "Battle request handling latency in milliseconds",
			m.histogramBuckets),
	)
	m.workerErrorRate = auto.NewCounter(m.counterOpts("worker_errors_total", "Battle requests whose handler failed"))

	m.httpRequests = auto.NewCounterVec(
		m.counterOpts("http_requests_total", "Total number of HTTP requests by endpoint and method"),
		[]string{"endpoint", "method", "status_code"},
	)
	m.httpRequestDuration = auto.NewHistogramVec(
		m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds", m.histogramBuckets),
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		m.counterOpts("errors_by_component_total", "Total number of errors by component"),
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(m.gaugeOpts("system_memory_usage_bytes", "System memory usage in bytes"))
	m.systemGoroutineCount = auto.NewGauge(m.gaugeOpts("system_goroutine_count", "Number of goroutines"))
	m.systemGCPauseTime = auto.NewHistogram(
		m.histogramOpts("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
			[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000}),
	)
}

// RecordBattle counts a battle run with the given outcome.
func RecordBattle(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.battles.WithLabelValues(outcome).Inc()
}

// RecordBattleDuration records a completed battle's duration.
func RecordBattleDuration(d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.battleDuration.Observe(d.Seconds())
}

// RecordReplay counts a replay with the given outcome.
func RecordReplay(outcome string) {
	if !globalManager.enabled {
		return
	}
	globalManager.replays.WithLabelValues(outcome).Inc()
}

// RecordReplayDuration records a replay's duration.
func RecordReplayDuration(d time.Duration) {
	if !globalManager.enabled {
		return
	}
	globalManager.replayDuration.Observe(d.Seconds())
}

// RecordCompile counts a compilation attempt.
func RecordCompile(language string, ok bool) {
	if !globalManager.enabled {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	globalManager.compiles.WithLabelValues(language, result).Inc()
}

// RecordCompileLatency records compilation latency in milliseconds.
func RecordCompileLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.compileLatency.Observe(latencyMs)
}

// RecordPollCycle counts a poll cycle with its result.
func RecordPollCycle(result string) {
	if !globalManager.enabled {
		return
	}
	globalManager.pollCycles.WithLabelValues(result).Inc()
}

// RecordPollItem counts one listed recording by disposition.
func RecordPollItem(disposition string) {
	if !globalManager.enabled {
		return
	}
	globalManager.pollItems.WithLabelValues(disposition).Inc()
}

// RecordBlobOperation counts a blob store call and, when failed, its error.
func RecordBlobOperation(backend, operation string, err error) {
	if !globalManager.enabled {
		return
	}
	globalManager.blobOperations.WithLabelValues(backend, operation).Inc()
	if err != nil {
		globalManager.blobErrors.WithLabelValues(backend, operation).Inc()
	}
}

// RecordDiscoveryRepository counts a repository examined by discovery.
func RecordDiscoveryRepository() {
	if !globalManager.enabled {
		return
	}
	globalManager.discoveryRepositories.Inc()
}

// RecordDiscoveryChanged counts a registry update made by discovery.
func RecordDiscoveryChanged() {
	if !globalManager.enabled {
		return
	}
	globalManager.discoveryChanged.Inc()
}

// RecordDiscoveryError counts a discovery failure.
func RecordDiscoveryError() {
	if !globalManager.enabled {
		return
	}
	globalManager.discoveryErrors.Inc()
}

// UpdateRegistrySize sets the number of registered competitors.
func UpdateRegistrySize(n int) {
	globalManager.registrySize.Set(float64(n))
}

// UpdateHistorySize sets the number of battles in the local history.
func UpdateHistorySize(n int) {
	globalManager.historySize.Set(float64(n))
}

// RecordScoreboardLatency records scoreboard aggregation latency in milliseconds.
func RecordScoreboardLatency(latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.scoreboardLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// UpdateWorkerActiveCount sets the number of active workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// UpdateWorkerIdleCount sets the number of idle workers.
func UpdateWorkerIdleCount(count int) {
	globalManager.workerIdleCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrorRate.Inc()
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
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it at startup before metrics are recorded or served.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	all := append(append([]Option(nil), opts...), WithPrometheusRegistry(registry))
	customRegistry = registry
	globalManager = NewManager(all...)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}

// RefreshInterval returns the sampling period of the global manager.
func RefreshInterval() time.Duration {
	return globalManager.RefreshInterval()
}
