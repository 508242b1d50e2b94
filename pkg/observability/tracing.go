package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// TracerName is the name of the tracer for recording operations.
	TracerName = "minuteman"
)

// Span attribute keys
const (
	AttrSessionID   = "session_id"
	AttrEventID     = "event_id"
	AttrProvider    = "provider"
	AttrRemoteState = "remote_state"
	AttrIteration   = "iteration"
)

// Span names
const (
	SpanTrackSession    = "recording.track_session"
	SpanPollIteration   = "recording.poll_iteration"
	SpanFetchTranscript = "recording.fetch_transcript"
	SpanScheduleBot     = "recording.schedule_bot"
)

// Tracer provides distributed tracing for recording operations.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new recording tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(TracerName),
	}
}

// StartSessionSpan starts a root span for tracking a recording session.
func (t *Tracer) StartSessionSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanTrackSession,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
		),
	)
}

// StartIterationSpan starts a child span for one remote status query.
func (t *Tracer) StartIterationSpan(ctx context.Context, sessionID string, iteration int) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanPollIteration,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
			attribute.Int(AttrIteration, iteration),
		),
	)
}

// StartFetchSpan starts a span for a transcript download.
func (t *Tracer) StartFetchSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanFetchTranscript,
		trace.WithAttributes(
			attribute.String(AttrSessionID, sessionID),
		),
	)
}

// StartScheduleSpan starts a span for scheduling a bot.
func (t *Tracer) StartScheduleSpan(ctx context.Context, provider string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, SpanScheduleBot,
		trace.WithAttributes(
			attribute.String(AttrProvider, provider),
		),
	)
}

// SetEventID records the calendar event backing the operation.
func SetEventID(span trace.Span, eventID string) {
	span.SetAttributes(attribute.String(AttrEventID, eventID))
}

// SetRemoteState records the bot state observed by an iteration.
func SetRemoteState(span trace.Span, state string) {
	span.SetAttributes(attribute.String(AttrRemoteState, state))
}

// EndSpanError records an error on the span and marks it failed.
func EndSpanError(span trace.Span, err error) {
	span.SetStatus(codes.Error, err.Error())
	span.RecordError(err)
	span.End()
}

// EndSpanOK marks the span successful and ends it.
func EndSpanOK(span trace.Span) {
	span.SetStatus(codes.Ok, "")
	span.End()
}

// GetTraceID returns the trace ID from the context.
func GetTraceID(ctx context.Context) string {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		return span.SpanContext().TraceID().String()
	}
	return ""
}
