package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "feedmonitor"

// Metrics interface for dependency injection
type Metrics interface {
	RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration)
	RecordIteration(outcome string)
	RecordStageDuration(stage string, duration time.Duration)
	RecordGeocode(outcome string)
	RecordBroadcast(status string)
	SetActiveMonitors(count float64)
	SetSubscribers(count float64)
	SetDBConnectionsActive(count float64)
	RecordDBQuery(operation, status string)
	Handler() http.Handler
}

// NoOpMetrics provides a no-op implementation
type NoOpMetrics struct{}

func (m *NoOpMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
}
func (m *NoOpMetrics) RecordIteration(outcome string)                           {}
func (m *NoOpMetrics) RecordStageDuration(stage string, duration time.Duration) {}
func (m *NoOpMetrics) RecordGeocode(outcome string)                             {}
func (m *NoOpMetrics) RecordBroadcast(status string)                            {}
func (m *NoOpMetrics) SetActiveMonitors(count float64)                          {}
func (m *NoOpMetrics) SetSubscribers(count float64)                             {}
func (m *NoOpMetrics) SetDBConnectionsActive(count float64)                     {}
func (m *NoOpMetrics) RecordDBQuery(operation, status string)                   {}
func (m *NoOpMetrics) Handler() http.Handler                                    { return http.NotFoundHandler() }

// PrometheusMetrics records into its own registry
type PrometheusMetrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	iterations     *prometheus.CounterVec
	stageDuration  *prometheus.HistogramVec
	geocodes       *prometheus.CounterVec
	broadcasts     *prometheus.CounterVec
	activeMonitors prometheus.Gauge
	subscribers    prometheus.Gauge
	dbConnections  prometheus.Gauge
	dbQueries      *prometheus.CounterVec
}

// NewPrometheusMetrics creates a registry with the service and runtime collectors
func NewPrometheusMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &PrometheusMetrics{
		registry: reg,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_iterations_total",
			Help:      "Pipeline iterations by outcome",
		}, []string{"outcome"}),
		stageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of external pipeline stages in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 15, 20, 30, 60, 120},
		}, []string{"stage"}),
		geocodes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "geocode_requests_total",
			Help:      "Geocode requests by outcome",
		}, []string{"outcome"}),
		broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_deliveries_total",
			Help:      "Subscriber deliveries by status",
		}, []string{"status"}),
		activeMonitors: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_monitors",
			Help:      "Number of running feed monitors",
		}),
		subscribers: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "subscribers",
			Help:      "Number of live subscribers",
		}),
		dbConnections: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "db_connections_active",
			Help:      "Acquired database connections",
		}),
		dbQueries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "db_queries_total",
			Help:      "Database queries by operation and status",
		}, []string{"operation", "status"}),
	}
}

func (m *PrometheusMetrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequests.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordIteration(outcome string) {
	m.iterations.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordStageDuration(stage string, duration time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (m *PrometheusMetrics) RecordGeocode(outcome string) {
	m.geocodes.WithLabelValues(outcome).Inc()
}

func (m *PrometheusMetrics) RecordBroadcast(status string) {
	m.broadcasts.WithLabelValues(status).Inc()
}

func (m *PrometheusMetrics) SetActiveMonitors(count float64)      { m.activeMonitors.Set(count) }
func (m *PrometheusMetrics) SetSubscribers(count float64)         { m.subscribers.Set(count) }
func (m *PrometheusMetrics) SetDBConnectionsActive(count float64) { m.dbConnections.Set(count) }

func (m *PrometheusMetrics) RecordDBQuery(operation, status string) {
	m.dbQueries.WithLabelValues(operation, status).Inc()
}

func (m *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Global metrics instance
var globalMetrics Metrics = &NoOpMetrics{}

// Init switches the global instance to Prometheus
func Init() {
	globalMetrics = NewPrometheusMetrics()
}

// Set replaces the global instance
func Set(m Metrics) {
	globalMetrics = m
}

// Handler returns the metrics handler
func Handler() http.Handler {
	return globalMetrics.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	globalMetrics.RecordHTTPRequest(method, endpoint, statusCode, duration)
}

// RecordIteration records the outcome of one pipeline iteration
func RecordIteration(outcome string) {
	globalMetrics.RecordIteration(outcome)
}

// RecordStageDuration records how long an external stage took
func RecordStageDuration(stage string, duration time.Duration) {
	globalMetrics.RecordStageDuration(stage, duration)
}

// RecordGeocode records a geocode outcome: hit, found, empty or error
func RecordGeocode(outcome string) {
	globalMetrics.RecordGeocode(outcome)
}

// RecordBroadcast records one subscriber delivery
func RecordBroadcast(status string) {
	globalMetrics.RecordBroadcast(status)
}

// SetActiveMonitors sets the number of running monitors
func SetActiveMonitors(count float64) {
	globalMetrics.SetActiveMonitors(count)
}

// SetSubscribers sets the number of live subscribers
func SetSubscribers(count float64) {
	globalMetrics.SetSubscribers(count)
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	globalMetrics.SetDBConnectionsActive(count)
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	globalMetrics.RecordDBQuery(operation, status)
}
