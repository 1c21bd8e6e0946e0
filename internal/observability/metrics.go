package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service's prometheus collectors.
type Metrics struct {
	registry *prometheus.Registry

	requests             *prometheus.CounterVec
	requestDuration      *prometheus.HistogramVec
	errors               *prometheus.CounterVec
	sweeps               *prometheus.CounterVec
	escalations          prometheus.Counter
	sweepSkips           *prometheus.CounterVec
	notificationFailures *prometheus.CounterVec
}

// NewMetrics creates collectors on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicedesk_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "servicedesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicedesk_http_errors_total",
			Help: "HTTP errors by route, method and error code.",
		}, []string{"path", "method", "code"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicedesk_escalation_sweeps_total",
			Help: "Escalation sweeps by result.",
		}, []string{"result"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "servicedesk_escalations_total",
			Help: "Tickets escalated by the sweep.",
		}),
		sweepSkips: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicedesk_escalation_skips_total",
			Help: "Breached tickets the sweep could not escalate, by reason.",
		}, []string{"reason"}),
		notificationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "servicedesk_notification_failures_total",
			Help: "Best-effort notifications that failed, by channel.",
		}, []string{"channel"}),
	}
	m.registry.MustRegister(
		m.requests,
		m.requestDuration,
		m.errors,
		m.sweeps,
		m.escalations,
		m.sweepSkips,
		m.notificationFailures,
	)
	return m
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordSweep counts a finished sweep.
func (m *Metrics) RecordSweep(result string, escalated int) {
	if m == nil {
		return
	}
	m.sweeps.WithLabelValues(result).Inc()
	m.escalations.Add(float64(escalated))
}

// RecordSweepSkip counts a breached ticket left in place.
func (m *Metrics) RecordSweepSkip(reason string) {
	if m == nil {
		return
	}
	m.sweepSkips.WithLabelValues(reason).Inc()
}

// RecordNotificationFailure counts a failed best-effort notification.
func (m *Metrics) RecordNotificationFailure(channel string) {
	if m == nil {
		return
	}
	m.notificationFailures.WithLabelValues(channel).Inc()
}
