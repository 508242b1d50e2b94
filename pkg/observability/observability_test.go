package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRecordingMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRecordingMetrics(reg)
	require.NotNil(t, m)

	m.RecordPollIteration("ATTENDING")
	m.RecordPollIteration("ATTENDING")
	m.RecordTransition("joining", "recording")
	m.RecordOutcome("ready")
	m.RecordFetch("ok", 1.2)
	m.RecordBotScheduled("Google Meet", "immediate")
	m.RecordScheduleFailure("Zoom Meeting", "invalid_link")
	m.RecordHTTPRequest("GET", "/recordings", "200", 0.01)
	m.ActivePollers.Inc()

	assert.Equal(t, float64(2), testutil.ToFloat64(m.PollIterationsTotal.WithLabelValues("ATTENDING")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.StatusTransitions.WithLabelValues("joining", "recording")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.PollOutcomesTotal.WithLabelValues("ready")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ActivePollers))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.BotsScheduledTotal.WithLabelValues("Google Meet", "immediate")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/recordings", "200")))
}

func TestSeparateRegistries(t *testing.T) {
	// Two metric sets on separate registries must not collide.
	a := NewRecordingMetrics(prometheus.NewRegistry())
	b := NewRecordingMetrics(prometheus.NewRegistry())
	a.RecordOutcome("timeout")
	assert.Equal(t, float64(0), testutil.ToFloat64(b.PollOutcomesTotal.WithLabelValues("timeout")))
}

func TestTracerSpans(t *testing.T) {
	tr := NewTracer()
	ctx, span := tr.StartSessionSpan(context.Background(), "nt-1")
	require.NotNil(t, span)

	_, iterSpan := tr.StartIterationSpan(ctx, "nt-1", 3)
	require.NotNil(t, iterSpan)
	SetRemoteState(iterSpan, "ATTENDING")
	EndSpanOK(iterSpan)

	_, fetchSpan := tr.StartFetchSpan(ctx, "nt-1")
	require.NotNil(t, fetchSpan)
	EndSpanError(fetchSpan, context.DeadlineExceeded)

	_, schedSpan := tr.StartScheduleSpan(context.Background(), "Google Meet")
	require.NotNil(t, schedSpan)
	SetEventID(schedSpan, "evt-1")
	schedSpan.End()

	EndSpanOK(span)

	// The default no-op tracer yields an empty trace id.
	assert.Equal(t, "", GetTraceID(context.Background()))
}
