package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request outcomes used as label values
const (
	OutcomeOK             = "ok"
	OutcomeAPIError       = "api_error"
	OutcomeProtocolError  = "protocol_error"
	OutcomeTransportError = "transport_error"
	OutcomeClientError    = "client_error"
)

// Metrics holds all Prometheus metrics for the grievance client.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Access client metrics
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Uploads         *prometheus.CounterVec
	UploadBytes     prometheus.Counter

	// Session metrics
	SessionTransitions *prometheus.CounterVec

	// Route guard metrics
	GuardDecisions *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered
func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grievance_client_requests_total",
				Help: "Total number of requests issued by the access client",
			},
			[]string{"method", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "grievance_client_request_duration_seconds",
				Help:    "Duration of access client requests in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"method"},
		),
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grievance_client_uploads_total",
				Help: "Total number of file uploads",
			},
			[]string{"outcome"},
		),
		UploadBytes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "grievance_client_upload_bytes_total",
				Help: "Total multipart bytes sent by successful uploads",
			},
		),
		SessionTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grievance_session_transitions_total",
				Help: "Session state transitions by target phase",
			},
			[]string{"phase"},
		),
		GuardDecisions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grievance_guard_decisions_total",
				Help: "Route guard decisions by route and outcome",
			},
			[]string{"route", "decision"},
		),
	}
}

// ObserveRequest records one access client request
func (m *Metrics) ObserveRequest(method, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(d.Seconds())
}

// ObserveUpload records one upload attempt
func (m *Metrics) ObserveUpload(outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.Uploads.WithLabelValues(outcome).Inc()
	if bytes > 0 {
		m.UploadBytes.Add(float64(bytes))
	}
}

// ObserveTransition records a session transition
func (m *Metrics) ObserveTransition(phase string) {
	if m == nil {
		return
	}
	m.SessionTransitions.WithLabelValues(phase).Inc()
}

// ObserveDecision records a route guard decision
func (m *Metrics) ObserveDecision(route, decision string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(route, decision).Inc()
}
