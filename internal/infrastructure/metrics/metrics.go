package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/iho/finledger/internal/domain"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Statement metrics
	StatementsCreated  *prometheus.CounterVec
	StatementsRejected *prometheus.CounterVec
	StatementAmount    *prometheus.HistogramVec

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Authentication metrics
	AuthAttempts *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Idempotency metrics
	IdempotentReplays prometheus.Counter

	// Outbox metrics
	EventsPublished    *prometheus.CounterVec
	EventPublishErrors *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		// Statement metrics
		StatementsCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finledger_statements_created_total",
				Help: "Total number of statements recorded by operation type",
			},
			[]string{"type"},
		),
		StatementsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finledger_statements_rejected_total",
				Help: "Total number of rejected statement requests by reason",
			},
			[]string{"reason"},
		),
		StatementAmount: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finledger_statement_amount",
				Help:    "Statement amounts by operation type",
				Buckets: []float64{1, 10, 100, 1000, 10000, 100000, 1000000},
			},
			[]string{"type"},
		),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		// Authentication metrics
		AuthAttempts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finledger_auth_attempts_total",
				Help: "Total session requests by outcome",
			},
			[]string{"status"},
		),

		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "finledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		IdempotentReplays: factory.NewCounter(prometheus.CounterOpts{
			Name: "finledger_idempotent_replays_total",
			Help: "Total responses served from the idempotency cache",
		}),

		// Outbox metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finledger_outbox_events_published_total",
				Help: "Total outbox events published by event type",
			},
			[]string{"event_type"},
		),
		EventPublishErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finledger_outbox_publish_errors_total",
				Help: "Total outbox publish failures by event type",
			},
			[]string{"event_type"},
		),
	}
}

// StatementCreated records a persisted statement.
func (m *Metrics) StatementCreated(operation domain.OperationType, amount decimal.Decimal) {
	m.StatementsCreated.WithLabelValues(string(operation)).Inc()
	m.StatementAmount.WithLabelValues(string(operation)).Observe(amount.InexactFloat64())
}

// StatementRejected records a refused statement request.
func (m *Metrics) StatementRejected(reason string) {
	m.StatementsRejected.WithLabelValues(reason).Inc()
}

// ObserveHTTPRequest records one served request.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// AuthAttempt records a session request outcome.
func (m *Metrics) AuthAttempt(success bool) {
	status := "failure"
	if success {
		status = "success"
	}
	m.AuthAttempts.WithLabelValues(status).Inc()
}

// RateLimited records a throttled request.
func (m *Metrics) RateLimited() {
	m.RateLimitHits.Inc()
}

// IdempotentReplay records a response served from the idempotency cache.
func (m *Metrics) IdempotentReplay() {
	m.IdempotentReplays.Inc()
}

// EventPublished records a delivered outbox event.
func (m *Metrics) EventPublished(eventType string) {
	m.EventsPublished.WithLabelValues(eventType).Inc()
}

// EventPublishFailed records a failed outbox delivery.
func (m *Metrics) EventPublishFailed(eventType string) {
	m.EventPublishErrors.WithLabelValues(eventType).Inc()
}
