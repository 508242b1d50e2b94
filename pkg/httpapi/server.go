// Package httpapi exposes the meeting scheduling and transcript tracking
// endpoints over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/otherjamesbrown/minuteman/pkg/buildinfo"
	"github.com/otherjamesbrown/minuteman/pkg/cache"
	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
	"github.com/otherjamesbrown/minuteman/pkg/events"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
	"github.com/otherjamesbrown/minuteman/pkg/observability"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
)

// Bot display names sent to the remote service.
const (
	scheduledBotName = "AI Notetaker Bot"
	invitedBotName   = "AI Transcription Bot"
)

// CalendarAPI is the slice of the notetaker client the handlers depend on.
type CalendarAPI interface {
	InviteBot(ctx context.Context, req *notetaker.InviteBotRequest) (*notetaker.BotStatus, error)
	CreateEvent(ctx context.Context, calendarID string, req *notetaker.CreateEventRequest) (*notetaker.Event, error)
	FindEvent(ctx context.Context, calendarID, eventID string) (*notetaker.Event, error)
	ListEvents(ctx context.Context, q notetaker.ListEventsQuery) ([]notetaker.Event, error)
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
	GrantStatus(ctx context.Context) (*notetaker.Grant, error)
	GrantID() string
}

// BotTracker starts the polling state machine for a session.
type BotTracker interface {
	Track(sessionID string) bool
}

// HealthChecker reports readiness of a backing dependency.
type HealthChecker func(ctx context.Context) error

// Options wires a Router. Remote, Store and Tracker are required.
type Options struct {
	Remote    CalendarAPI
	Store     recordings.Store
	Cache     *cache.TranscriptCache
	Tracker   BotTracker
	Publisher *events.Publisher
	Metrics   *observability.RecordingMetrics
	Tracer    *observability.Tracer
	Logger    logging.Logger

	// Location is the wall-clock timezone schedule requests are expressed in.
	// Defaults to UTC.
	Location *time.Location

	// Health is consulted by /healthz; nil means always healthy.
	Health HealthChecker

	// MetricsRegistry backs /metrics. Defaults to the global registry.
	MetricsRegistry *prometheus.Registry

	ServiceName string
}

// Router holds the handler dependencies.
type Router struct {
	remote    CalendarAPI
	store     recordings.Store
	cache     *cache.TranscriptCache
	tracker   BotTracker
	publisher *events.Publisher
	metrics   *observability.RecordingMetrics
	tracer    *observability.Tracer
	logger    logging.Logger
	location  *time.Location
	health    HealthChecker
	registry  *prometheus.Registry
	service   string
}

// NewRouter creates a Router from options.
func NewRouter(opts Options) *Router {
	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	service := opts.ServiceName
	if service == "" {
		service = "minuteman"
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NewTracer()
	}

	return &Router{
		remote:    opts.Remote,
		store:     opts.Store,
		cache:     opts.Cache,
		tracker:   opts.Tracker,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		tracer:    tracer,
		logger:    log.With(logging.F("component", "httpapi")),
		location:  loc,
		health:    opts.Health,
		registry:  opts.MetricsRegistry,
		service:   service,
	}
}

// Register installs all routes on the mux.
func (r *Router) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /schedule-meeting", r.scheduleMeeting)
	mux.HandleFunc("POST /fetch-calendar-events", r.fetchCalendarEvents)
	mux.HandleFunc("POST /auto-deploy-bot", r.autoDeployBot)
	mux.HandleFunc("GET /transcripts/{id}", r.transcriptStatus)
	mux.HandleFunc("GET /recordings", r.listRecordings)
	mux.HandleFunc("DELETE /recordings/{id}", r.deleteRecording)
	mux.HandleFunc("DELETE /calendar-events/{id}", r.deleteCalendarEvent)
	mux.HandleFunc("GET /auth-status", r.authStatus)
	mux.HandleFunc("GET /healthz", r.healthz)
	mux.HandleFunc("GET /version", buildinfo.Handler(r.service))
	mux.Handle("GET /metrics", r.metricsHandler())
}

// Handler returns the full middleware-wrapped handler.
func (r *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	r.Register(mux)

	var h http.Handler = mux
	h = r.instrument(h)
	h = r.accessLog(h)
	h = requestID(h)
	h = cors(h)
	return h
}

func (r *Router) metricsHandler() http.Handler {
	if r.registry != nil {
		return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

func (r *Router) healthz(w http.ResponseWriter, req *http.Request) {
	if r.health != nil {
		if err := r.health(req.Context()); err != nil {
			respondJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unhealthy",
				"error":  err.Error(),
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

// respondJSON writes a JSON response with the given status.
func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError writes the standard error body.
func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]any{"detail": detail})
}

// errorStatus maps a domain error to an HTTP status.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, mmerrors.ErrValidation):
		return http.StatusBadRequest
	case mmerrors.IsNotFound(err) || mmerrors.IsRemoteNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, mmerrors.ErrAlreadyExists):
		return http.StatusConflict
	default:
		return http.StatusBadGateway
	}
}
