// Package tracker runs the per-session polling state machine that follows a
// notetaker bot from scheduling through transcript retrieval.
//
// One poller goroutine is started per session id, immediately after the
// tracking record is inserted. Pollers are fire-and-forget: they have no
// per-session cancellation API and self-terminate by reaching a terminal
// status. The Supervisor tracks liveness so that duplicate starts are
// rejected, and Shutdown stops pollers waiting out their poll interval so
// the drain completes within the shutdown grace period.
package tracker

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/otherjamesbrown/minuteman/pkg/cache"
	"github.com/otherjamesbrown/minuteman/pkg/events"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
	"github.com/otherjamesbrown/minuteman/pkg/observability"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
)

// Default polling parameters. 120 iterations at 30s apart gives each session
// roughly a one hour budget to produce media.
const (
	DefaultMaxIterations = 120
	DefaultPollInterval  = 30 * time.Second
	DefaultFetchTimeout  = 60 * time.Second
)

// RemoteAPI is the slice of the notetaker client the poller depends on.
type RemoteAPI interface {
	FindBot(ctx context.Context, sessionID string) (*notetaker.BotStatus, error)
	GetMedia(ctx context.Context, sessionID string) (*notetaker.Media, error)
}

// Config holds the polling parameters. The defaults match production; tests
// shrink them to keep runs fast.
type Config struct {
	// MaxIterations bounds how many times the remote state is queried before
	// the session is declared timed out.
	MaxIterations int

	// PollInterval is the delay between iterations.
	PollInterval time.Duration

	// FetchTimeout bounds the single transcript download attempt.
	FetchTimeout time.Duration
}

// withDefaults fills unset fields.
func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = DefaultMaxIterations
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = DefaultFetchTimeout
	}
	return c
}

// Options wires a Supervisor's collaborators. Remote, Store and Logger are
// required; the rest degrade to no-ops when nil.
type Options struct {
	Config    Config
	Remote    RemoteAPI
	Store     recordings.Store
	Cache     *cache.TranscriptCache
	Publisher *events.Publisher
	Metrics   *observability.RecordingMetrics
	Tracer    *observability.Tracer
	Logger    logging.Logger

	// FetchClient downloads transcript payloads. Defaults to a client bounded
	// by FetchTimeout.
	FetchClient *http.Client
}

// Supervisor owns the set of running pollers, keyed by session id.
type Supervisor struct {
	cfg       Config
	remote    RemoteAPI
	store     recordings.Store
	cache     *cache.TranscriptCache
	publisher *events.Publisher
	metrics   *observability.RecordingMetrics
	tracer    *observability.Tracer
	logger    logging.Logger
	fetcher   *http.Client

	mu     sync.Mutex
	active map[string]struct{}
	wg     sync.WaitGroup

	quit     chan struct{}
	quitOnce sync.Once
}

// NewSupervisor creates a Supervisor with no running pollers.
func NewSupervisor(opts Options) *Supervisor {
	cfg := opts.Config.withDefaults()

	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	tracer := opts.Tracer
	if tracer == nil {
		tracer = observability.NewTracer()
	}

	fetcher := opts.FetchClient
	if fetcher == nil {
		fetcher = &http.Client{Timeout: cfg.FetchTimeout}
	}

	return &Supervisor{
		cfg:       cfg,
		remote:    opts.Remote,
		store:     opts.Store,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		metrics:   opts.Metrics,
		tracer:    tracer,
		logger:    log.With(logging.F("component", "tracker")),
		fetcher:   fetcher,
		active:    make(map[string]struct{}),
		quit:      make(chan struct{}),
	}
}

// Track starts a poller for the session id. It returns false without starting
// anything when a poller for that id is already running.
func (s *Supervisor) Track(sessionID string) bool {
	s.mu.Lock()
	if _, running := s.active[sessionID]; running {
		s.mu.Unlock()
		s.logger.Debug("poller already running", logging.F("session_id", sessionID))
		return false
	}
	s.active[sessionID] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.active, sessionID)
			s.mu.Unlock()
		}()
		s.run(sessionID)
	}()

	return true
}

// Active returns the number of pollers currently running.
func (s *Supervisor) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Shutdown stops pollers sleeping between iterations and waits for all of
// them to finish or the context to expire. A poller mid-query completes the
// iteration first; a session that has not reached a terminal status keeps
// its last persisted status.
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.quitOnce.Do(func() { close(s.quit) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
