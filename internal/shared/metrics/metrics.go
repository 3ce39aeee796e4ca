package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Ledger metrics
	DebitsTotal     *prometheus.CounterVec
	CreditsDebited  *prometheus.CounterVec
	RollbacksTotal  *prometheus.CounterVec
	CreditsGranted  *prometheus.CounterVec
	ReconciledTotal prometheus.Counter

	// Generation gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayRequestDuration *prometheus.HistogramVec
	GatewayCircuitOpen     *prometheus.GaugeVec

	// Billing metrics
	WebhookEventsTotal *prometheus.CounterVec
}

// New creates a Metrics instance registered on reg.
// A nil reg registers on the default prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "cuentia"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_in_flight",
				Help:      "Current number of HTTP requests being processed",
			},
		),

		DebitsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credits",
				Name:      "debits_total",
				Help:      "Debit attempts by outcome",
			},
			[]string{"result"}, // applied, insufficient, conflict, error
		),
		CreditsDebited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credits",
				Name:      "debited_total",
				Help:      "Credits debited by pool",
			},
			[]string{"pool"}, // monthly, purchased
		),
		RollbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credits",
				Name:      "rollbacks_total",
				Help:      "Debit rollbacks by reason",
			},
			[]string{"reason"},
		),
		CreditsGranted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credits",
				Name:      "granted_total",
				Help:      "Credits added to accounts by source",
			},
			[]string{"source"},
		),
		ReconciledTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credits",
				Name:      "reconciled_debits_total",
				Help:      "Stale pending debits rolled back by the reconciler",
			},
		),

		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "requests_total",
				Help:      "Generation gateway calls by operation and outcome",
			},
			[]string{"operation", "status"},
		),
		GatewayRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "request_duration_seconds",
				Help:      "Generation gateway call duration in seconds",
				Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 180},
			},
			[]string{"operation"},
		),
		GatewayCircuitOpen: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "gateway",
				Name:      "circuit_open",
				Help:      "Circuit breaker state (1=open, 0=closed or half-open)",
			},
			[]string{"operation"},
		),

		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "billing",
				Name:      "webhook_events_total",
				Help:      "Stripe webhook events by type and result",
			},
			[]string{"type", "result"},
		),
	}
}

// --- Convenience methods ---

// RecordHTTPRequest records an HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCodeToString(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordDebit records a debit attempt and, when applied, the split across pools.
func (m *Metrics) RecordDebit(result string, monthly, purchased int64) {
	if m == nil {
		return
	}
	m.DebitsTotal.WithLabelValues(result).Inc()
	if monthly > 0 {
		m.CreditsDebited.WithLabelValues("monthly").Add(float64(monthly))
	}
	if purchased > 0 {
		m.CreditsDebited.WithLabelValues("purchased").Add(float64(purchased))
	}
}

// RecordRollback records a debit rollback.
func (m *Metrics) RecordRollback(reason string) {
	if m == nil {
		return
	}
	m.RollbacksTotal.WithLabelValues(reason).Inc()
}

// RecordGrant records credits added to an account.
func (m *Metrics) RecordGrant(source string, credits int64) {
	if m == nil {
		return
	}
	m.CreditsGranted.WithLabelValues(source).Add(float64(credits))
}

// RecordReconciled records a debit rolled back by the reconciler.
func (m *Metrics) RecordReconciled() {
	if m == nil {
		return
	}
	m.ReconciledTotal.Inc()
}

// RecordGatewayRequest records a generation gateway call.
func (m *Metrics) RecordGatewayRequest(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.GatewayRequestsTotal.WithLabelValues(operation, status).Inc()
	m.GatewayRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetCircuitOpen sets the circuit breaker state of a gateway operation.
func (m *Metrics) SetCircuitOpen(operation string, open bool) {
	if m == nil {
		return
	}
	value := 0.0
	if open {
		value = 1.0
	}
	m.GatewayCircuitOpen.WithLabelValues(operation).Set(value)
}

// RecordWebhookEvent records a processed webhook event.
func (m *Metrics) RecordWebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// statusCodeToString converts an HTTP status code to a string category.
func statusCodeToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
