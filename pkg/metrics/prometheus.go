// Package metrics provides Prometheus metrics for the recommendation service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Label values shared with callers.
const (
	CacheHit     = "hit"
	CacheMiss    = "miss"
	CacheCorrupt = "corrupt"
	CacheError   = "error"

	FallbackNoMatch = "no_match"
	FallbackFailure = "failure"

	UpstreamOK          = "ok"
	UpstreamNotFound    = "not_found"
	UpstreamError       = "error"
	UpstreamBreakerOpen = "breaker_open"
	UpstreamCanceled    = "canceled"
)

// latencyBuckets are millisecond buckets sized for upstream calls bounded by a
// couple of seconds.
var latencyBuckets = []float64{1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000} //nolint:gochecknoglobals // bucket table

// Manager manages all Prometheus metrics for the recommendation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Decision metrics
	decisions        *prometheus.CounterVec
	fallbacks        *prometheus.CounterVec
	decisionLatency  prometheus.Histogram
	aggregateLatency prometheus.Histogram

	// Cache metrics
	cacheRequests    *prometheus.CounterVec
	cacheWriteErrors prometheus.Counter

	// Upstream metrics
	upstreamRequests     *prometheus.CounterVec
	upstreamLatency      *prometheus.HistogramVec
	circuitBreakerState  *prometheus.GaugeVec
	circuitBreakerChange *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "orbit",
		subsystem:        "recommendation",
		histogramBuckets: latencyBuckets,
		enabled:          true,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)
	constLabels := prometheus.Labels(m.customLabels)

	m.decisions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("decisions_total"),
		Help:        "Recommendations returned, by the rule that produced them",
		ConstLabels: constLabels,
	}, []string{"rule"})

	m.fallbacks = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("fallbacks_total"),
		Help:        "Fallback recommendations substituted, by reason",
		ConstLabels: constLabels,
	}, []string{"reason"})

	m.decisionLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("decision_latency_milliseconds"),
		Help:        "End-to-end latency of a decision cycle in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.aggregateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("aggregation_latency_milliseconds"),
		Help:        "Latency of building a user context in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})

	m.cacheRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cache_requests_total"),
		Help:        "Recommendation cache lookups by result",
		ConstLabels: constLabels,
	}, []string{"result"})

	m.cacheWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("cache_write_errors_total"),
		Help:        "Recommendation cache writes that failed",
		ConstLabels: constLabels,
	})

	m.upstreamRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("upstream_requests_total"),
		Help:        "Upstream summary reads by source and outcome",
		ConstLabels: constLabels,
	}, []string{"source", "outcome"})

	m.upstreamLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("upstream_latency_milliseconds"),
		Help:        "Upstream summary read latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"source"})

	m.circuitBreakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_state"),
		Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		ConstLabels: constLabels,
	}, []string{"name"})

	m.circuitBreakerChange = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("circuit_breaker_transitions_total"),
		Help:        "Circuit breaker state transitions",
		ConstLabels: constLabels,
	}, []string{"name", "from", "to"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_requests_total"),
		Help:        "Total number of HTTP requests",
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("http_request_duration_milliseconds"),
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_memory_bytes"),
		Help:        "Allocated heap memory in bytes",
		ConstLabels: constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_goroutines"),
		Help:        "Number of goroutines",
		ConstLabels: constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_milliseconds"),
		Help:        "Average GC pause time in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: constLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RecordDecision counts a recommendation returned for rule.
func (m *Manager) RecordDecision(rule string) {
	if m.enabled {
		m.decisions.WithLabelValues(rule).Inc()
	}
}

// RecordFallback counts a fallback substitution.
func (m *Manager) RecordFallback(reason string) {
	if m.enabled {
		m.fallbacks.WithLabelValues(reason).Inc()
	}
}

// RecordCacheResult counts a cache lookup outcome.
func (m *Manager) RecordCacheResult(result string) {
	if m.enabled {
		m.cacheRequests.WithLabelValues(result).Inc()
	}
}

// Package-level helpers operate on the global manager.

// RecordDecision increments the decisions counter for rule.
func RecordDecision(rule string) { globalManager.RecordDecision(rule) }

// RecordFallback increments the fallback counter for reason.
func RecordFallback(reason string) { globalManager.RecordFallback(reason) }

// RecordDecisionLatency observes a full decision cycle.
func RecordDecisionLatency(latencyMs float64) {
	globalManager.decisionLatency.Observe(latencyMs)
}

// RecordAggregationLatency observes context aggregation time.
func RecordAggregationLatency(latencyMs float64) {
	globalManager.aggregateLatency.Observe(latencyMs)
}

// RecordCacheResult increments the cache lookup counter.
func RecordCacheResult(result string) { globalManager.RecordCacheResult(result) }

// RecordCacheWriteError increments the cache write error counter.
func RecordCacheWriteError() {
	globalManager.cacheWriteErrors.Inc()
}

// RecordUpstreamRequest records the outcome and latency of one upstream read.
func RecordUpstreamRequest(source, outcome string, latencyMs float64) {
	globalManager.upstreamRequests.WithLabelValues(source, outcome).Inc()
	globalManager.upstreamLatency.WithLabelValues(source).Observe(latencyMs)
}

// UpdateCircuitBreakerState sets the breaker state gauge.
func UpdateCircuitBreakerState(name string, state float64) {
	globalManager.circuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordCircuitBreakerTransition counts a breaker state change.
func RecordCircuitBreakerTransition(name, from, to string) {
	globalManager.circuitBreakerChange.WithLabelValues(name, from, to).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
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

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
