// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// InboundEventsTotal counts chat messages received, by channel and payload kind.
	InboundEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inbound_events_total",
			Help: "Total inbound chat events",
		},
		[]string{"channel", "kind"},
	)

	// TransitionsTotal counts dialogue transitions.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dialogue_transitions_total",
			Help: "Total dialogue state transitions",
		},
		[]string{"from", "to"},
	)

	// TasksSavedTotal counts terminal transitions by persistence outcome.
	TasksSavedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tasks_saved_total",
			Help: "Total task records persisted",
		},
		[]string{"status"},
	)

	// SendErrorsTotal counts failed outbound sends.
	SendErrorsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "outbound_send_errors_total",
			Help: "Total failed outbound chat messages",
		},
	)

	// SessionsActive tracks conversations held in the session store.
	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sessions_active",
			Help: "Number of conversations in the session store",
		},
	)

	// TaskEventsPublished counts task-created events by outcome.
	TaskEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_events_published_total",
			Help: "Total task-created events published to NATS",
		},
		[]string{"status"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordTransition records one dialogue transition.
func RecordTransition(from, to string) {
	TransitionsTotal.WithLabelValues(from, to).Inc()
}
