package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/notetaker"
	"github.com/otherjamesbrown/minuteman/pkg/observability"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
)

// defaultMeetingDuration is used because the remote service requires an end
// time when a notetaker is attached.
const defaultMeetingDuration = time.Hour

// eventTimeLayout renders event times back to clients, e.g.
// "2025-10-07 10:46 AM IST".
const eventTimeLayout = notetaker.ScheduleTimeLayout + " MST"

type scheduleMeetingRequest struct {
	Title       string `json:"title"`
	MeetingLink string `json:"meeting_link"`
	StartTime   string `json:"start_time"`
}

type scheduleMeetingResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	EventID     string `json:"event_id,omitempty"`
	Title       string `json:"title"`
	StartTime   string `json:"start_time"`
	MeetingLink string `json:"meeting_link"`
	Provider    string `json:"provider"`
	NotetakerID string `json:"notetaker_id,omitempty"`
	BotStatus   string `json:"bot_status"`
}

// scheduleMeeting creates a calendar event with an embedded bot and starts
// transcript tracking. Zoom meetings get the bot via direct invitation
// instead, which the remote service handles more reliably.
func (r *Router) scheduleMeeting(w http.ResponseWriter, req *http.Request) {
	var body scheduleMeetingRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body.Title == "" || body.MeetingLink == "" || body.StartTime == "" {
		respondError(w, http.StatusBadRequest, "title, meeting_link and start_time are required")
		return
	}

	provider, err := notetaker.DetectProvider(body.MeetingLink)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	start, err := notetaker.ParseScheduleTime(body.StartTime, r.location)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	end := start.Add(defaultMeetingDuration)

	ctx, span := r.tracer.StartScheduleSpan(req.Context(), provider)
	defer span.End()

	isZoom := provider == notetaker.ProviderZoom

	eventReq := &notetaker.CreateEventRequest{
		Title: body.Title,
		When: notetaker.Timespan{
			StartTime:     start.Unix(),
			EndTime:       end.Unix(),
			StartTimezone: r.location.String(),
			EndTimezone:   r.location.String(),
		},
		Conferencing: &notetaker.Conferencing{
			Provider: provider,
			Details:  notetaker.ConferencingDetails{URL: body.MeetingLink},
		},
	}
	if !isZoom {
		eventReq.Notetaker = &notetaker.NotetakerConfig{
			Name: scheduledBotName,
			MeetingSettings: notetaker.MeetingSettings{
				VideoRecording: true,
				AudioRecording: true,
				Transcription:  true,
				Summary:        true,
			},
		}
	}

	log := r.logger.WithContext(ctx)
	event, err := r.remote.CreateEvent(ctx, "", eventReq)
	if err != nil {
		if !providerRejected(err) {
			if r.metrics != nil {
				r.metrics.RecordScheduleFailure(provider, "create_event")
			}
			span.RecordError(err)
			respondError(w, errorStatus(err), "failed to create meeting: "+err.Error())
			return
		}

		// The remote service rejected the detected provider. Google Meet is
		// accepted as a generic conferencing entry, so retry with it.
		log.Warn("provider rejected, retrying with Google Meet",
			logging.F("provider", provider), logging.Err(err))
		eventReq.Conferencing.Provider = notetaker.ProviderGoogleMeet
		event, err = r.remote.CreateEvent(ctx, "", eventReq)
		if err != nil {
			if r.metrics != nil {
				r.metrics.RecordScheduleFailure(provider, "create_event")
			}
			span.RecordError(err)
			respondError(w, errorStatus(err), "failed to create meeting: "+err.Error())
			return
		}
		provider = notetaker.ProviderGoogleMeet
	}
	observability.SetEventID(span, event.ID)

	sessionID := ""
	if event.Notetaker != nil {
		sessionID = event.Notetaker.ID
	}

	mode := "embedded"
	botError := ""
	if sessionID == "" || isZoom {
		mode = "invited"
		status, inviteErr := r.remote.InviteBot(ctx, &notetaker.InviteBotRequest{
			MeetingLink: body.MeetingLink,
			Name:        invitedBotName,
			MeetingSettings: notetaker.MeetingSettings{
				VideoRecording: true,
				AudioRecording: true,
				Transcription:  true,
				Diarization:    true,
			},
		})
		if inviteErr != nil {
			botError = inviteErr.Error()
			log.Error("bot invitation failed",
				logging.Err(inviteErr),
				logging.F("provider", provider))
			if r.metrics != nil {
				r.metrics.RecordScheduleFailure(provider, "invite")
			}
		} else {
			sessionID = status.ID
		}
	}

	resp := scheduleMeetingResponse{
		Title:       body.Title,
		StartTime:   start.Format(eventTimeLayout),
		MeetingLink: body.MeetingLink,
		Provider:    provider,
		EventID:     event.ID,
	}

	if sessionID == "" {
		resp.Success = false
		resp.Message = "Meeting created but bot deployment failed."
		resp.BotStatus = "Failed to configure bot: " + botError
		respondJSON(w, http.StatusOK, resp)
		return
	}

	if err := r.store.Insert(ctx, &recordings.Record{
		ID:      sessionID,
		Status:  recordings.StatusScheduled,
		EventID: event.ID,
	}); err != nil {
		span.RecordError(err)
		respondError(w, errorStatus(err), "failed to track session: "+err.Error())
		return
	}
	r.tracker.Track(sessionID)

	if r.metrics != nil {
		r.metrics.RecordBotScheduled(provider, mode)
	}
	if r.publisher != nil {
		if err := r.publisher.PublishBotScheduled(ctx, sessionID, event.ID, body.MeetingLink, provider); err != nil {
			log.Warn("publishing scheduled event", logging.Err(err))
		}
	}
	log.Info("meeting scheduled",
		logging.F("session_id", sessionID),
		logging.F("event_id", event.ID),
		logging.F("provider", provider),
		logging.F("mode", mode),
		logging.F("trace_id", observability.GetTraceID(ctx)))

	resp.Success = true
	resp.Message = "Meeting scheduled. The bot will join automatically at the scheduled time."
	resp.NotetakerID = sessionID
	resp.BotStatus = "Configured to join at scheduled time"
	respondJSON(w, http.StatusOK, resp)
}

// providerRejected reports whether the remote error looks like a conferencing
// provider rejection, which is worth one retry with the generic provider.
func providerRejected(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "provider") || strings.Contains(msg, "conferencing")
}

type fetchEventsRequest struct {
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date,omitempty"`
	CalendarID string `json:"calendar_id,omitempty"`
}

type eventInfo struct {
	EventID      string `json:"event_id"`
	Title        string `json:"title"`
	StartTime    string `json:"start_time,omitempty"`
	EndTime      string `json:"end_time,omitempty"`
	MeetingLink  string `json:"meeting_link,omitempty"`
	Conferencing string `json:"conferencing_provider,omitempty"`
	Status       string `json:"status,omitempty"`
}

// fetchCalendarEvents lists calendar events in a date range, with meeting
// links extracted from conferencing details.
func (r *Router) fetchCalendarEvents(w http.ResponseWriter, req *http.Request) {
	var body fetchEventsRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body.StartDate == "" {
		respondError(w, http.StatusBadRequest, "start_date is required")
		return
	}

	start, err := notetaker.ParseDate(body.StartDate, r.location)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	end := start
	if body.EndDate != "" {
		end, err = notetaker.ParseDate(body.EndDate, r.location)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	endOfDay := end.Add(24*time.Hour - time.Second)

	events, err := r.remote.ListEvents(req.Context(), notetaker.ListEventsQuery{
		CalendarID: body.CalendarID,
		Start:      start,
		End:        endOfDay,
	})
	if err != nil {
		respondError(w, errorStatus(err), "failed to fetch calendar events: "+err.Error())
		return
	}

	list := make([]eventInfo, 0, len(events))
	for i := range events {
		event := &events[i]
		info := eventInfo{
			EventID:     event.ID,
			Title:       event.Title,
			MeetingLink: event.MeetingLink(),
			Status:      event.Status,
		}
		if info.Title == "" {
			info.Title = "Untitled"
		}
		if event.When != nil {
			info.StartTime = time.Unix(event.When.StartTime, 0).In(r.location).Format(eventTimeLayout)
			if event.When.EndTime > 0 {
				info.EndTime = time.Unix(event.When.EndTime, 0).In(r.location).Format(eventTimeLayout)
			}
		}
		if event.Conferencing != nil {
			info.Conferencing = event.Conferencing.Provider
		}
		list = append(list, info)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total_events": len(list),
		"date_range": map[string]string{
			"start": start.Format(eventTimeLayout),
			"end":   endOfDay.Format(eventTimeLayout),
		},
		"events": list,
	})
}

type autoDeployRequest struct {
	EventID    string `json:"event_id"`
	CalendarID string `json:"calendar_id,omitempty"`
}

// autoDeployBot invites a bot to the meeting of an existing calendar event
// and starts transcript tracking.
func (r *Router) autoDeployBot(w http.ResponseWriter, req *http.Request) {
	var body autoDeployRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if body.EventID == "" {
		respondError(w, http.StatusBadRequest, "event_id is required")
		return
	}

	event, err := r.remote.FindEvent(req.Context(), body.CalendarID, body.EventID)
	if err != nil {
		respondError(w, errorStatus(err), "failed to find calendar event: "+err.Error())
		return
	}

	meetingLink := event.MeetingLink()
	if meetingLink == "" {
		respondError(w, http.StatusBadRequest,
			"no meeting link found in the calendar event")
		return
	}

	status, err := r.remote.InviteBot(req.Context(), &notetaker.InviteBotRequest{
		MeetingLink: meetingLink,
		Name:        invitedBotName,
		MeetingSettings: notetaker.MeetingSettings{
			VideoRecording: true,
			AudioRecording: true,
			Transcription:  true,
		},
	})
	if err != nil {
		respondError(w, errorStatus(err), "failed to deploy bot: "+err.Error())
		return
	}

	// The bot joins a live or imminent meeting, so tracking starts at
	// processing rather than scheduled.
	if err := r.store.Insert(req.Context(), &recordings.Record{
		ID:      status.ID,
		Status:  recordings.StatusProcessing,
		EventID: body.EventID,
	}); err != nil {
		respondError(w, errorStatus(err), "failed to track session: "+err.Error())
		return
	}
	r.tracker.Track(status.ID)

	title := event.Title
	if title == "" {
		title = "Untitled"
	}

	log := r.logger.WithContext(req.Context())
	log.Info("bot deployed to event",
		logging.F("session_id", status.ID),
		logging.F("event_id", body.EventID))
	if r.publisher != nil {
		if err := r.publisher.PublishBotScheduled(req.Context(), status.ID, body.EventID, meetingLink, ""); err != nil {
			log.Warn("publishing scheduled event", logging.Err(err))
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"message":      "Bot successfully deployed to the meeting.",
		"notetaker_id": status.ID,
		"event_id":     body.EventID,
		"event_title":  title,
		"meeting_link": meetingLink,
		"status":       "Bot will join the meeting and start recording",
	})
}

// deleteCalendarEvent removes a calendar event and cascades to any tracking
// records associated with it. Both sides are best effort; 404 only when
// neither had anything to delete.
func (r *Router) deleteCalendarEvent(w http.ResponseWriter, req *http.Request) {
	eventID := req.PathValue("id")
	calendarID := req.URL.Query().Get("calendar_id")
	log := r.logger.WithContext(req.Context())

	calendarDeleted := false
	if err := r.remote.DeleteEvent(req.Context(), calendarID, eventID); err != nil {
		log.Warn("calendar deletion failed",
			logging.Err(err), logging.F("event_id", eventID))
	} else {
		calendarDeleted = true
	}

	recordingsDeleted, err := r.store.DeleteByEvent(req.Context(), eventID)
	if err != nil {
		log.Warn("removing associated recordings failed",
			logging.Err(err), logging.F("event_id", eventID))
	}

	if !calendarDeleted && recordingsDeleted == 0 {
		respondError(w, http.StatusNotFound,
			"event '"+eventID+"' not found in calendar or store, it may have been already deleted")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"deleted_event_id":   eventID,
		"calendar_deletion":  calendarDeleted,
		"recordings_deleted": recordingsDeleted,
	})
}

// authStatus verifies the calendar grant with the remote service.
func (r *Router) authStatus(w http.ResponseWriter, req *http.Request) {
	grant, err := r.remote.GrantStatus(req.Context())
	if err != nil {
		respondJSON(w, http.StatusOK, map[string]any{
			"authenticated": false,
			"message":       "authentication check failed: " + err.Error(),
			"grant_id":      r.remote.GrantID(),
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"authenticated": true,
		"message":       "successfully authenticated",
		"grant_id":      grant.ID,
		"email":         grant.Email,
		"provider":      grant.Provider,
		"status":        grant.Status,
	})
}
