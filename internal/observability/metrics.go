package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus registry. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	errors   *prometheus.CounterVec
	queueOps *prometheus.CounterVec
	sweeps   prometheus.Counter
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency by route and method",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP error responses by route, method and error code",
		}, []string{"route", "method", "code"}),
		queueOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "queue_operations_total",
			Help: "Queue and freeze operations by outcome",
		}, []string{"operation", "queue", "outcome"}),
		sweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "freeze_sweeps_expired_total",
			Help: "Freezes whose in-effect flag was cleared after their end date",
		}),
	}
	m.registry.MustRegister(
		m.requests, m.latency, m.errors, m.queueOps, m.sweeps,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(route, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(route, method, code).Inc()
}

// RecordQueueOperation counts a queue or freeze operation. queue is empty for
// operations not tied to a queue.
func (m *Metrics) RecordQueueOperation(operation, queue string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.queueOps.WithLabelValues(operation, queue, outcome).Inc()
}

// RecordSweep adds the number of freezes expired by one sweep.
func (m *Metrics) RecordSweep(expired int64) {
	if m == nil || expired <= 0 {
		return
	}
	m.sweeps.Add(float64(expired))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry for gathering.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
