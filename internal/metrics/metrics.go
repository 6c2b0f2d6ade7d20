package metrics

import (
	"github.com/garyellow/travel-linebot-go/internal/buildinfo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Gateway labels.
const (
	GatewayTextSearch   = "text_search"
	GatewayNearbySearch = "nearby_search"
	GatewayAnswer       = "answer"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec

	// Conversation metrics
	TransitionsTotal *prometheus.CounterVec

	// Gateway metrics
	GatewayRequestsTotal   *prometheus.CounterVec
	GatewayDurationSeconds *prometheus.HistogramVec
	AnswerFallbacksTotal   *prometheus.CounterVec

	// Singleflight metrics
	SingleflightDedupTotal *prometheus.CounterVec

	// Storage metrics
	StorageErrorsTotal *prometheus.CounterVec
	StoredRows         *prometheus.GaugeVec

	// Background job metrics
	JobDurationSeconds *prometheus.HistogramVec
}

// New creates a new Metrics instance with all metrics registered, plus the
// Go, process and build info collectors.
func New(registry *prometheus.Registry) *Metrics {
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	factory.NewGauge(prometheus.GaugeOpts{
		Name:        "travel_build_info",
		Help:        "Build metadata, always 1",
		ConstLabels: prometheus.Labels{"release": buildinfo.Release()},
	}).Set(1)

	m := &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travel_webhook_duration_seconds",
				Help:    "Webhook event processing duration in seconds by event type",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 15},
			},
			[]string{"event_type"}, // event_type: text, location, menu, follow
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error, ignored
		),

		TransitionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_transitions_total",
				Help: "Conversation state transitions by from state, to state and event kind",
			},
			[]string{"from", "to", "event"},
		),

		GatewayRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_gateway_requests_total",
				Help: "Total number of external gateway calls by gateway and status",
			},
			[]string{"gateway", "status"}, // status: success, empty, error
		),

		GatewayDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travel_gateway_duration_seconds",
				Help:    "External gateway call duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"gateway"},
		),

		AnswerFallbacksTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_answer_fallbacks_total",
				Help: "Answers served from the fallback text by reason",
			},
			[]string{"reason"}, // reason: unconfigured, timeout, http_status, unreachable, ...
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"gateway"},
		),

		StorageErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "travel_storage_errors_total",
				Help: "Storage operation failures by operation",
			},
			[]string{"operation"},
		),

		StoredRows: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "travel_stored_rows",
				Help: "Row count per table, refreshed periodically",
			},
			[]string{"table"},
		),

		JobDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "travel_job_duration_seconds",
				Help:    "Background job duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
			},
			[]string{"job"}, // job: history_cleanup, backup, restore
		),
	}

	return m
}

// RecordWebhook records one processed webhook event.
func (m *Metrics) RecordWebhook(eventType, status string, duration float64) {
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordTransition records a conversation transition, including self-loops.
func (m *Metrics) RecordTransition(from, to, event string) {
	m.TransitionsTotal.WithLabelValues(from, to, event).Inc()
}

// RecordGateway records an external call.
func (m *Metrics) RecordGateway(gateway, status string, duration float64) {
	m.GatewayRequestsTotal.WithLabelValues(gateway, status).Inc()
	m.GatewayDurationSeconds.WithLabelValues(gateway).Observe(duration)
}

// RecordAnswerFallback records an answer served from fallback text.
func (m *Metrics) RecordAnswerFallback(reason string) {
	m.AnswerFallbacksTotal.WithLabelValues(reason).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(gateway string) {
	m.SingleflightDedupTotal.WithLabelValues(gateway).Inc()
}

// RecordStorageError records a failed storage operation.
func (m *Metrics) RecordStorageError(operation string) {
	m.StorageErrorsTotal.WithLabelValues(operation).Inc()
}

// SetStoredRows updates the row gauge for a table.
func (m *Metrics) SetStoredRows(table string, n int64) {
	m.StoredRows.WithLabelValues(table).Set(float64(n))
}

// RecordJob records a background job run.
func (m *Metrics) RecordJob(job string, duration float64) {
	m.JobDurationSeconds.WithLabelValues(job).Observe(duration)
}
