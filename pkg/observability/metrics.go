// Package observability provides Prometheus metrics and distributed tracing
// for the recording pipeline.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// RecordingMetrics holds all Prometheus metrics for the recording pipeline.
type RecordingMetrics struct {
	// Polling metrics
	PollIterationsTotal  *prometheus.CounterVec
	StatusTransitions    *prometheus.CounterVec
	PollOutcomesTotal    *prometheus.CounterVec
	ActivePollers        prometheus.Gauge
	PollDurationSeconds  prometheus.Histogram
	FetchDurationSeconds *prometheus.HistogramVec

	// Scheduling metrics
	BotsScheduledTotal *prometheus.CounterVec
	ScheduleFailures   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// DefaultRecordingMetrics creates metrics on the default registerer.
func DefaultRecordingMetrics() *RecordingMetrics {
	return NewRecordingMetrics(prometheus.DefaultRegisterer)
}

// NewRecordingMetrics creates a new set of recording pipeline metrics.
func NewRecordingMetrics(reg prometheus.Registerer) *RecordingMetrics {
	factory := promauto.With(reg)

	return &RecordingMetrics{
		// Polling metrics
		PollIterationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteman_poll_iterations_total",
				Help: "Total polling iterations by remote bot state",
			},
			[]string{"remote_state"},
		),
		StatusTransitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteman_status_transitions_total",
				Help: "Total recording status transitions",
			},
			[]string{"from", "to"},
		),
		PollOutcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteman_poll_outcomes_total",
				Help: "Terminal outcomes of polling sessions",
			},
			[]string{"outcome"},
		),
		ActivePollers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "minuteman_active_pollers",
				Help: "Number of polling sessions currently running",
			},
		),
		PollDurationSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "minuteman_poll_duration_seconds",
				Help:    "Total wall-clock duration of polling sessions",
				Buckets: []float64{30, 60, 300, 600, 1200, 1800, 2700, 3600, 4500},
			},
		),
		FetchDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minuteman_transcript_fetch_seconds",
				Help:    "Transcript download latency",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"status"},
		),

		// Scheduling metrics
		BotsScheduledTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteman_bots_scheduled_total",
				Help: "Total bots invited to meetings",
			},
			[]string{"provider", "mode"},
		),
		ScheduleFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteman_schedule_failures_total",
				Help: "Total bot scheduling failures",
			},
			[]string{"provider", "reason"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "minuteman_http_requests_total",
				Help: "Total HTTP requests handled",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "minuteman_http_request_seconds",
				Help:    "HTTP request latency",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
			},
			[]string{"method", "path"},
		),
	}
}

// RecordPollIteration records one polling iteration and the remote state seen.
func (m *RecordingMetrics) RecordPollIteration(remoteState string) {
	m.PollIterationsTotal.WithLabelValues(remoteState).Inc()
}

// RecordTransition records a recording status transition.
func (m *RecordingMetrics) RecordTransition(from, to string) {
	m.StatusTransitions.WithLabelValues(from, to).Inc()
}

// RecordOutcome records the terminal outcome of a polling session.
func (m *RecordingMetrics) RecordOutcome(outcome string) {
	m.PollOutcomesTotal.WithLabelValues(outcome).Inc()
}

// RecordFetch records a transcript download attempt.
func (m *RecordingMetrics) RecordFetch(status string, seconds float64) {
	m.FetchDurationSeconds.WithLabelValues(status).Observe(seconds)
}

// RecordBotScheduled records a successful bot invitation.
func (m *RecordingMetrics) RecordBotScheduled(provider, mode string) {
	m.BotsScheduledTotal.WithLabelValues(provider, mode).Inc()
}

// RecordScheduleFailure records a failed bot invitation.
func (m *RecordingMetrics) RecordScheduleFailure(provider, reason string) {
	m.ScheduleFailures.WithLabelValues(provider, reason).Inc()
}

// RecordHTTPRequest records a handled HTTP request.
func (m *RecordingMetrics) RecordHTTPRequest(method, path, status string, seconds float64) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(seconds)
}
