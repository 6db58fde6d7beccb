// Package metrics provides Prometheus metrics for the pairup matching service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exported by the service.
type Manager struct {
	namespace      string
	subsystem      string
	latencyBuckets []float64
	registry       prometheus.Registerer

	// Queue store
	entriesInserted  prometheus.Counter
	entriesDuplicate prometheus.Counter
	entriesExpired   prometheus.Counter
	entriesWithdrawn prometheus.Counter
	entriesPruned    prometheus.Counter
	entriesPending   prometheus.Gauge

	// Matching
	matchAttempts   *prometheus.CounterVec
	matchLatency    prometheus.Histogram
	claimConflicts  prometheus.Counter
	claimRollbacks  prometheus.Counter
	sessionsCreated prometheus.Counter
	sessionsReused  prometheus.Counter
	roomErrors      prometheus.Counter
	slotQueries     prometheus.Counter

	// Match job queue and workers
	jobQueueSize     prometheus.Gauge
	jobQueueCapacity prometheus.Gauge
	jobsEnqueued     prometheus.Counter
	jobsRejected     *prometheus.CounterVec
	workerCount      prometheus.Gauge
	workerLatency    prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Runtime
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:      "pairup",
		subsystem:      "matching",
		latencyBuckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:       prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.latencyBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every collector
	auto := promauto.With(m.registry)

	m.entriesInserted = m.counter("entries_inserted_total", "Queue entries accepted by the store")
	m.entriesDuplicate = m.counter("entries_duplicate_total", "Joins rejected because an identical pending entry exists")
	m.entriesExpired = m.counter("entries_expired_total", "Pending entries moved to expired")
	m.entriesWithdrawn = m.counter("entries_withdrawn_total", "Pending entries withdrawn by their owner")
	m.entriesPruned = m.counter("entries_pruned_total", "Terminal entries dropped from memory")
	m.entriesPending = m.gauge("entries_pending", "Entries currently waiting for a partner")

	m.matchAttempts = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "match_attempts_total",
		Help:      "Match attempts by outcome (matched, no_match, not_eligible, error)",
	}, []string{"outcome"})
	m.matchLatency = m.histogram("match_latency_milliseconds", "Duration of a single match attempt")
	m.claimConflicts = m.counter("claim_conflicts_total", "ClaimPair calls that lost a race")
	m.claimRollbacks = m.counter("claim_rollbacks_total", "Claims returned to pending after room provisioning failed")
	m.sessionsCreated = m.counter("sessions_created_total", "Sessions created")
	m.sessionsReused = m.counter("sessions_reused_total", "Create calls answered with an existing session")
	m.roomErrors = m.counter("room_provisioning_errors_total", "Room provisioning failures")
	m.slotQueries = m.counter("slot_queries_total", "Slot availability queries served")

	m.jobQueueSize = m.gauge("job_queue_size", "Match jobs waiting in the queue")
	m.jobQueueCapacity = m.gauge("job_queue_capacity", "Capacity of the match job queue")
	m.jobsEnqueued = m.counter("jobs_enqueued_total", "Match jobs accepted by the queue")
	m.jobsRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "jobs_rejected_total",
		Help:      "Match jobs refused by the queue, by reason",
	}, []string{"reason"})
	m.workerCount = m.gauge("worker_count", "Match workers running")
	m.workerLatency = m.histogram("worker_processing_latency_milliseconds", "Time a worker spends on one job")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.latencyBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
}

// RecordEntryInserted increments the inserted entries counter.
func RecordEntryInserted() { globalManager.entriesInserted.Inc() }

// RecordEntryDuplicate increments the duplicate join counter.
func RecordEntryDuplicate() { globalManager.entriesDuplicate.Inc() }

// RecordEntriesExpired adds n to the expired counter.
func RecordEntriesExpired(n int) { globalManager.entriesExpired.Add(float64(n)) }

// RecordEntryWithdrawn increments the withdrawn counter.
func RecordEntryWithdrawn() { globalManager.entriesWithdrawn.Inc() }

// RecordEntriesPruned adds n to the pruned counter.
func RecordEntriesPruned(n int) { globalManager.entriesPruned.Add(float64(n)) }

// UpdatePendingEntries sets the pending entries gauge.
func UpdatePendingEntries(n int) { globalManager.entriesPending.Set(float64(n)) }

// RecordMatchAttempt counts one match attempt with its outcome label.
func RecordMatchAttempt(outcome string) { globalManager.matchAttempts.WithLabelValues(outcome).Inc() }

// RecordMatchLatency records match attempt latency in milliseconds.
func RecordMatchLatency(ms float64) { globalManager.matchLatency.Observe(ms) }

// RecordClaimConflict increments the lost-race counter.
func RecordClaimConflict() { globalManager.claimConflicts.Inc() }

// RecordClaimRollback increments the compensating rollback counter.
func RecordClaimRollback() { globalManager.claimRollbacks.Inc() }

// RecordSessionCreated increments the created sessions counter.
func RecordSessionCreated() { globalManager.sessionsCreated.Inc() }

// RecordSessionReused increments the idempotent replay counter.
func RecordSessionReused() { globalManager.sessionsReused.Inc() }

// RecordRoomProvisioningError increments the provisioning failure counter.
func RecordRoomProvisioningError() { globalManager.roomErrors.Inc() }

// RecordSlotQuery increments the slot query counter.
func RecordSlotQuery() { globalManager.slotQueries.Inc() }

// UpdateJobQueueSize sets the job queue length gauge.
func UpdateJobQueueSize(n int) { globalManager.jobQueueSize.Set(float64(n)) }

// UpdateJobQueueCapacity sets the job queue capacity gauge.
func UpdateJobQueueCapacity(n int) { globalManager.jobQueueCapacity.Set(float64(n)) }

// RecordJobEnqueued increments the enqueued jobs counter.
func RecordJobEnqueued() { globalManager.jobsEnqueued.Inc() }

// RecordJobRejected counts a refused job with the given reason.
func RecordJobRejected(reason string) { globalManager.jobsRejected.WithLabelValues(reason).Inc() }

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(n int) { globalManager.workerCount.Set(float64(n)) }

// RecordWorkerLatency records how long a worker spent on a job.
func RecordWorkerLatency(ms float64) { globalManager.workerLatency.Observe(ms) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutineCount.Set(float64(n)) }

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
