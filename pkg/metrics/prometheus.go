// Package metrics provides Prometheus metrics for the match sync service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the match sync service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      map[string]string
	registry         prometheus.Registerer

	// Remote API
	apiCalls   *prometheus.CounterVec
	apiLatency *prometheus.HistogramVec
	apiRetries *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec

	// Cache
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	cacheEvictions *prometheus.CounterVec
	cacheSize      prometheus.Gauge

	// Call budget
	budgetWaits   prometheus.Counter
	budgetDenials prometheus.Counter
	budgetUsed    prometheus.Gauge

	// Monitors
	monitorsActive  prometheus.Gauge
	monitorPolls    *prometheus.CounterVec
	monitorStops    *prometheus.CounterVec
	eventsDelivered prometheus.Counter
	eventsDuplicate prometheus.Counter
	eventsDropped   *prometheus.CounterVec

	// Notifications
	notifications     *prometheus.CounterVec
	queueSize         prometheus.Gauge
	queueCapacity     prometheus.Gauge
	workerCount       prometheus.Gauge
	workerProcLatency prometheus.Histogram

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	errorsByComponent *prometheus.CounterVec
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
		namespace:        "matchsync",
		subsystem:        "live",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      map[string]string{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.constLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.apiCalls = m.counterVec("api_calls_total", "Remote API calls by endpoint and outcome", "endpoint", "outcome")
	m.apiLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "api_call_duration_seconds",
		Help:        "Remote API call duration in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint"})
	m.apiRetries = m.counterVec("api_retries_total", "Remote API retries by error kind", "kind")
	m.fallbacks = m.counterVec("fallback_strategy_total", "Relevant-match lookups by the strategy that produced the result", "strategy")

	m.cacheHits = m.counterVec("cache_hits_total", "Cache hits by kind", "kind")
	m.cacheMisses = m.counterVec("cache_misses_total", "Cache misses by kind", "kind")
	m.cacheEvictions = m.counterVec("cache_evictions_total", "Expired cache entries removed, by trigger", "trigger")
	m.cacheSize = m.gauge("cache_entries", "Current number of cache entries")

	m.budgetWaits = m.counter("budget_waits_total", "Times a caller waited for a call slot")
	m.budgetDenials = m.counter("budget_denials_total", "Times a call was refused because the wait exceeded the ceiling")
	m.budgetUsed = m.gauge("budget_calls_in_window", "Outbound calls recorded in the current window")

	m.monitorsActive = m.gauge("monitors_active", "Currently registered live monitors")
	m.monitorPolls = m.counterVec("monitor_polls_total", "Monitor poll iterations by outcome", "outcome")
	m.monitorStops = m.counterVec("monitor_stops_total", "Monitor stops by reason", "reason")
	m.eventsDelivered = m.counter("events_delivered_total", "Live events delivered to game state")
	m.eventsDuplicate = m.counter("events_duplicate_total", "Live events suppressed as already delivered")
	m.eventsDropped = m.counterVec("events_dropped_total", "Live events dropped before delivery, by reason", "reason")

	m.notifications = m.counterVec("notifications_total", "User notifications by outcome", "outcome")
	m.queueSize = m.gauge("notify_queue_size", "Notifications waiting for a worker")
	m.queueCapacity = m.gauge("notify_queue_capacity", "Notification queue capacity")
	m.workerCount = m.gauge("notify_workers", "Running notification workers")
	m.workerProcLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "notify_latency_milliseconds",
		Help:        "Time spent delivering one notification",
		Buckets:     []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		ConstLabels: m.constLabels,
	})

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests", "endpoint", "method", "status_code")
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_seconds",
		Help:        "HTTP request duration in seconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")
}

// RecordAPICall records one remote API call and its duration in seconds.
func RecordAPICall(endpoint, outcome string, seconds float64) {
	globalManager.apiCalls.WithLabelValues(endpoint, outcome).Inc()
	globalManager.apiLatency.WithLabelValues(endpoint).Observe(seconds)
}

// RecordAPIRetry counts a retry caused by an error of the given kind.
func RecordAPIRetry(kind string) {
	globalManager.apiRetries.WithLabelValues(kind).Inc()
}

// RecordFallbackStrategy counts which relevant-match strategy produced a result.
func RecordFallbackStrategy(strategy string) {
	globalManager.fallbacks.WithLabelValues(strategy).Inc()
}

// RecordCacheHit increments the hit counter for kind.
func RecordCacheHit(kind string) {
	globalManager.cacheHits.WithLabelValues(kind).Inc()
}

// RecordCacheMiss increments the miss counter for kind.
func RecordCacheMiss(kind string) {
	globalManager.cacheMisses.WithLabelValues(kind).Inc()
}

// RecordCacheEvictions adds n evictions caused by trigger ("read" or "sweep").
func RecordCacheEvictions(trigger string, n int) {
	if n <= 0 {
		return
	}
	globalManager.cacheEvictions.WithLabelValues(trigger).Add(float64(n))
}

// UpdateCacheSize sets the current number of cache entries.
func UpdateCacheSize(n int) {
	globalManager.cacheSize.Set(float64(n))
}

// RecordBudgetWait increments the budget wait counter.
func RecordBudgetWait() {
	globalManager.budgetWaits.Inc()
}

// RecordBudgetDenied increments the budget denial counter.
func RecordBudgetDenied() {
	globalManager.budgetDenials.Inc()
}

// UpdateBudgetUsage sets the number of calls in the current window.
func UpdateBudgetUsage(n int) {
	globalManager.budgetUsed.Set(float64(n))
}

// UpdateActiveMonitors sets the number of registered monitors.
func UpdateActiveMonitors(n int) {
	globalManager.monitorsActive.Set(float64(n))
}

// RecordPoll counts a monitor iteration by outcome.
func RecordPoll(outcome string) {
	globalManager.monitorPolls.WithLabelValues(outcome).Inc()
}

// RecordMonitorStop counts a monitor stop by reason.
func RecordMonitorStop(reason string) {
	globalManager.monitorStops.WithLabelValues(reason).Inc()
}

// RecordEventsDelivered adds n delivered events.
func RecordEventsDelivered(n int) {
	globalManager.eventsDelivered.Add(float64(n))
}

// RecordEventsDuplicate adds n suppressed duplicate events.
func RecordEventsDuplicate(n int) {
	globalManager.eventsDuplicate.Add(float64(n))
}

// RecordEventDropped counts one event dropped for reason.
func RecordEventDropped(reason string) {
	globalManager.eventsDropped.WithLabelValues(reason).Inc()
}

// RecordNotification counts a notification by outcome (queued, sent, failed, dropped).
func RecordNotification(outcome string) {
	globalManager.notifications.WithLabelValues(outcome).Inc()
}

// UpdateQueueSize sets the current notification queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the notification queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records delivery latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
