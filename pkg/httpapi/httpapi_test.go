package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/minuteman/pkg/cache"
	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
	"github.com/otherjamesbrown/minuteman/pkg/transcript"
)

// fakeCalendar implements CalendarAPI with overridable function fields.
type fakeCalendar struct {
	inviteFn func(req *notetaker.InviteBotRequest) (*notetaker.BotStatus, error)
	createFn func(req *notetaker.CreateEventRequest) (*notetaker.Event, error)
	findFn   func(eventID string) (*notetaker.Event, error)
	listFn   func(q notetaker.ListEventsQuery) ([]notetaker.Event, error)
	deleteFn func(eventID string) error
	grantFn  func() (*notetaker.Grant, error)
}

func (f *fakeCalendar) InviteBot(ctx context.Context, req *notetaker.InviteBotRequest) (*notetaker.BotStatus, error) {
	if f.inviteFn == nil {
		return &notetaker.BotStatus{ID: "nt-invited"}, nil
	}
	return f.inviteFn(req)
}

func (f *fakeCalendar) CreateEvent(ctx context.Context, calendarID string, req *notetaker.CreateEventRequest) (*notetaker.Event, error) {
	if f.createFn == nil {
		return &notetaker.Event{ID: "evt-1", Title: req.Title}, nil
	}
	return f.createFn(req)
}

func (f *fakeCalendar) FindEvent(ctx context.Context, calendarID, eventID string) (*notetaker.Event, error) {
	if f.findFn == nil {
		return nil, mmerrors.NewRemoteNotFoundError("no such event")
	}
	return f.findFn(eventID)
}

func (f *fakeCalendar) ListEvents(ctx context.Context, q notetaker.ListEventsQuery) ([]notetaker.Event, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(q)
}

func (f *fakeCalendar) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	if f.deleteFn == nil {
		return nil
	}
	return f.deleteFn(eventID)
}

func (f *fakeCalendar) GrantStatus(ctx context.Context) (*notetaker.Grant, error) {
	if f.grantFn == nil {
		return &notetaker.Grant{ID: "grant-1", Email: "bot@example.com", Provider: "google", Status: "valid"}, nil
	}
	return f.grantFn()
}

func (f *fakeCalendar) GrantID() string { return "grant-1" }

// fakeTracker records which sessions were started.
type fakeTracker struct {
	mu      sync.Mutex
	tracked []string
}

func (f *fakeTracker) Track(sessionID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracked = append(f.tracked, sessionID)
	return true
}

func (f *fakeTracker) sessions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.tracked))
	copy(out, f.tracked)
	return out
}

type fixture struct {
	router  *Router
	remote  *fakeCalendar
	store   *recordings.MemoryStore
	cache   *cache.TranscriptCache
	tracker *fakeTracker
	handler http.Handler
}

func newFixture(remote *fakeCalendar) *fixture {
	store := recordings.NewMemoryStore()
	transcripts := cache.New()
	tracker := &fakeTracker{}
	router := NewRouter(Options{
		Remote:  remote,
		Store:   store,
		Cache:   transcripts,
		Tracker: tracker,
	})
	return &fixture{
		router:  router,
		remote:  remote,
		store:   store,
		cache:   transcripts,
		tracker: tracker,
		handler: router.Handler(),
	}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestScheduleMeetingEmbedsBot(t *testing.T) {
	remote := &fakeCalendar{
		createFn: func(req *notetaker.CreateEventRequest) (*notetaker.Event, error) {
			if req.Notetaker == nil {
				t.Error("expected embedded notetaker config")
			}
			return &notetaker.Event{
				ID:        "evt-42",
				Title:     req.Title,
				Notetaker: &notetaker.BotStatus{ID: "nt-42"},
			}, nil
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/schedule-meeting", scheduleMeetingRequest{
		Title:       "Weekly Sync",
		MeetingLink: "https://meet.google.com/abc-defg-hij",
		StartTime:   "2026-09-02 10:30 AM",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "nt-42", body["notetaker_id"])
	assert.Equal(t, "evt-42", body["event_id"])
	assert.Equal(t, notetaker.ProviderGoogleMeet, body["provider"])

	assert.Equal(t, []string{"nt-42"}, f.tracker.sessions())

	stored, err := f.store.Find(context.Background(), "nt-42")
	require.NoError(t, err)
	assert.Equal(t, recordings.StatusScheduled, stored.Status)
	assert.Equal(t, "evt-42", stored.EventID)
}

func TestScheduleMeetingZoomUsesDirectInvite(t *testing.T) {
	invited := false
	remote := &fakeCalendar{
		createFn: func(req *notetaker.CreateEventRequest) (*notetaker.Event, error) {
			if req.Notetaker != nil {
				t.Error("zoom events must not embed the notetaker")
			}
			return &notetaker.Event{ID: "evt-z"}, nil
		},
		inviteFn: func(req *notetaker.InviteBotRequest) (*notetaker.BotStatus, error) {
			invited = true
			assert.Equal(t, "https://zoom.us/j/123456", req.MeetingLink)
			return &notetaker.BotStatus{ID: "nt-zoom"}, nil
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/schedule-meeting", scheduleMeetingRequest{
		Title:       "Zoom Call",
		MeetingLink: "https://zoom.us/j/123456",
		StartTime:   "2026-09-02 02:00 PM",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, invited)
	body := decode(t, rec)
	assert.Equal(t, "nt-zoom", body["notetaker_id"])
	assert.Equal(t, []string{"nt-zoom"}, f.tracker.sessions())
}

func TestScheduleMeetingRejectsZoomWebClientLink(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodPost, "/schedule-meeting", scheduleMeetingRequest{
		Title:       "Zoom Call",
		MeetingLink: "https://zoom.us/wc/123456/join",
		StartTime:   "2026-09-02 02:00 PM",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.tracker.sessions())
}

func TestScheduleMeetingRejectsBadTime(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodPost, "/schedule-meeting", scheduleMeetingRequest{
		Title:       "Sync",
		MeetingLink: "https://meet.google.com/abc",
		StartTime:   "tomorrow at noon",
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScheduleMeetingRetriesWithFallbackProvider(t *testing.T) {
	calls := 0
	remote := &fakeCalendar{
		createFn: func(req *notetaker.CreateEventRequest) (*notetaker.Event, error) {
			calls++
			if calls == 1 {
				return nil, mmerrors.NewPermanentError(mmerrors.CodeBadRequest,
					"unsupported conferencing provider", nil)
			}
			assert.Equal(t, notetaker.ProviderGoogleMeet, req.Conferencing.Provider)
			return &notetaker.Event{ID: "evt-f", Notetaker: &notetaker.BotStatus{ID: "nt-f"}}, nil
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/schedule-meeting", scheduleMeetingRequest{
		Title:       "Teams Call",
		MeetingLink: "https://teams.microsoft.com/l/meetup-join/xyz",
		StartTime:   "2026-09-02 04:00 PM",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 2, calls)
	body := decode(t, rec)
	assert.Equal(t, notetaker.ProviderGoogleMeet, body["provider"])
}

func TestScheduleMeetingBotFailureStillReturnsEvent(t *testing.T) {
	remote := &fakeCalendar{
		createFn: func(req *notetaker.CreateEventRequest) (*notetaker.Event, error) {
			return &notetaker.Event{ID: "evt-nofallback"}, nil
		},
		inviteFn: func(req *notetaker.InviteBotRequest) (*notetaker.BotStatus, error) {
			return nil, mmerrors.NewTransientError(mmerrors.CodeServiceUnavailable, "bot service down", nil)
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/schedule-meeting", scheduleMeetingRequest{
		Title:       "Sync",
		MeetingLink: "https://meet.google.com/abc",
		StartTime:   "2026-09-02 10:00 AM",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["bot_status"], "Failed to configure bot")
	assert.Empty(t, f.tracker.sessions())
}

func TestFetchCalendarEvents(t *testing.T) {
	remote := &fakeCalendar{
		listFn: func(q notetaker.ListEventsQuery) ([]notetaker.Event, error) {
			assert.True(t, q.End.After(q.Start))
			return []notetaker.Event{
				{
					ID:    "evt-1",
					Title: "Standup",
					When:  &notetaker.Timespan{StartTime: q.Start.Unix(), EndTime: q.Start.Unix() + 3600},
					Conferencing: &notetaker.Conferencing{
						Provider: notetaker.ProviderGoogleMeet,
						Details:  notetaker.ConferencingDetails{URL: "https://meet.google.com/abc"},
					},
				},
				{ID: "evt-2"},
			}, nil
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/fetch-calendar-events", fetchEventsRequest{
		StartDate: "2026-09-02",
	})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total_events"])
	eventsList := body["events"].([]any)
	first := eventsList[0].(map[string]any)
	assert.Equal(t, "https://meet.google.com/abc", first["meeting_link"])
	second := eventsList[1].(map[string]any)
	assert.Equal(t, "Untitled", second["title"])
}

func TestAutoDeployBot(t *testing.T) {
	remote := &fakeCalendar{
		findFn: func(eventID string) (*notetaker.Event, error) {
			return &notetaker.Event{
				ID:    eventID,
				Title: "Planning",
				Conferencing: &notetaker.Conferencing{
					Details: notetaker.ConferencingDetails{URL: "https://meet.google.com/xyz"},
				},
			}, nil
		},
		inviteFn: func(req *notetaker.InviteBotRequest) (*notetaker.BotStatus, error) {
			return &notetaker.BotStatus{ID: "nt-auto"}, nil
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/auto-deploy-bot", autoDeployRequest{EventID: "evt-9"})

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "nt-auto", body["notetaker_id"])
	assert.Equal(t, []string{"nt-auto"}, f.tracker.sessions())

	stored, err := f.store.Find(context.Background(), "nt-auto")
	require.NoError(t, err)
	assert.Equal(t, recordings.StatusProcessing, stored.Status)
	assert.Equal(t, "evt-9", stored.EventID)
}

func TestAutoDeployBotNoMeetingLink(t *testing.T) {
	remote := &fakeCalendar{
		findFn: func(eventID string) (*notetaker.Event, error) {
			return &notetaker.Event{ID: eventID, Title: "No Link"}, nil
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodPost, "/auto-deploy-bot", autoDeployRequest{EventID: "evt-9"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, f.tracker.sessions())
}

func TestAutoDeployBotEventNotFound(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodPost, "/auto-deploy-bot", autoDeployRequest{EventID: "evt-missing"})

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTranscriptStatusFromStore(t *testing.T) {
	f := newFixture(&fakeCalendar{})
	require.NoError(t, f.store.Insert(context.Background(), &recordings.Record{
		ID:     "nt-1",
		Status: recordings.StatusReady,
		Transcript: []transcript.Segment{
			{Speaker: "Alice", Text: "Hello"},
			{Speaker: "Bob", Text: "Hi"},
		},
	}))

	rec := f.do(t, http.MethodGet, "/transcripts/nt-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "Media Available", body["display_status"])
	assert.Equal(t, "Alice: Hello\n\nBob: Hi", body["transcript_text"])
}

func TestTranscriptStatusCacheFallback(t *testing.T) {
	f := newFixture(&fakeCalendar{})
	f.cache.Put("nt-cached", "Alice: from cache")

	rec := f.do(t, http.MethodGet, "/transcripts/nt-cached", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "Alice: from cache", body["transcript_text"])
}

func TestTranscriptStatusNotFound(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodGet, "/transcripts/nt-missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListRecordings(t *testing.T) {
	f := newFixture(&fakeCalendar{})
	require.NoError(t, f.store.Insert(context.Background(), &recordings.Record{
		ID:     "nt-1",
		Status: recordings.StatusRecording,
	}))
	require.NoError(t, f.store.Insert(context.Background(), &recordings.Record{
		ID:         "nt-2",
		Status:     recordings.StatusReady,
		Transcript: []transcript.Segment{{Speaker: "Alice", Text: "Hi"}},
	}))

	rec := f.do(t, http.MethodGet, "/recordings", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, float64(2), body["total"])
}

func TestDeleteRecording(t *testing.T) {
	f := newFixture(&fakeCalendar{})
	require.NoError(t, f.store.Insert(context.Background(), &recordings.Record{
		ID:     "nt-1",
		Status: recordings.StatusReady,
	}))
	f.cache.Put("nt-1", "text")

	rec := f.do(t, http.MethodDelete, "/recordings/nt-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	_, err := f.store.Find(context.Background(), "nt-1")
	assert.True(t, mmerrors.IsNotFound(err))
	_, ok := f.cache.Get("nt-1")
	assert.False(t, ok)
}

func TestDeleteRecordingNotFound(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodDelete, "/recordings/nt-missing", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decode(t, rec)
	assert.Contains(t, body["detail"], "not found")
}

// brokenStore fails every delete with a backend error.
type brokenStore struct {
	*recordings.MemoryStore
}

func (s *brokenStore) Delete(ctx context.Context, id string) error {
	return errors.New("connection reset by peer")
}

func TestDeleteRecordingStoreFailure(t *testing.T) {
	store := &brokenStore{MemoryStore: recordings.NewMemoryStore()}
	require.NoError(t, store.Insert(context.Background(), &recordings.Record{
		ID:     "nt-1",
		Status: recordings.StatusReady,
	}))
	router := NewRouter(Options{
		Remote:  &fakeCalendar{},
		Store:   store,
		Tracker: &fakeTracker{},
	})

	req := httptest.NewRequest(http.MethodDelete, "/recordings/nt-1", nil)
	rec := httptest.NewRecorder()
	router.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	body := decode(t, rec)
	assert.NotContains(t, body["detail"], "not found")
	assert.Contains(t, body["detail"], "failed to delete recording 'nt-1'")
}

func TestDeleteCalendarEventCascades(t *testing.T) {
	remote := &fakeCalendar{
		deleteFn: func(eventID string) error {
			return mmerrors.NewRemoteNotFoundError("already gone")
		},
	}
	f := newFixture(remote)
	require.NoError(t, f.store.Insert(context.Background(), &recordings.Record{
		ID:      "nt-1",
		Status:  recordings.StatusScheduled,
		EventID: "evt-1",
	}))

	rec := f.do(t, http.MethodDelete, "/calendar-events/evt-1", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["calendar_deletion"])
	assert.Equal(t, float64(1), body["recordings_deleted"])
}

func TestDeleteCalendarEventNothingToDelete(t *testing.T) {
	remote := &fakeCalendar{
		deleteFn: func(eventID string) error {
			return mmerrors.NewRemoteNotFoundError("no such event")
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodDelete, "/calendar-events/evt-gone", nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAuthStatus(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodGet, "/auth-status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "bot@example.com", body["email"])
}

func TestAuthStatusFailure(t *testing.T) {
	remote := &fakeCalendar{
		grantFn: func() (*notetaker.Grant, error) {
			return nil, mmerrors.NewPermanentError(mmerrors.CodeUnauthorized, "invalid API key", nil)
		},
	}
	f := newFixture(remote)

	rec := f.do(t, http.MethodGet, "/auth-status", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["authenticated"])
	assert.Equal(t, "grant-1", body["grant_id"])
}

func TestHealthz(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
}

func TestVersionEndpoint(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodGet, "/version", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "minuteman", decode(t, rec)["service_name"])
}

func TestCORSPreflight(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	req := httptest.NewRequest(http.MethodOptions, "/recordings", nil)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeaderAssigned(t *testing.T) {
	f := newFixture(&fakeCalendar{})

	rec := f.do(t, http.MethodGet, "/healthz", nil)

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
