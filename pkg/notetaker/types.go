// Package notetaker provides the REST client for the remote meeting-bot
// service. It covers the bot lifecycle (invite, status, media) and the
// calendar operations the scheduling endpoints depend on.
package notetaker

import "time"

// BotState is the lifecycle state reported by the remote service for a
// deployed notetaker bot. The set is closed; any other value observed on the
// wire is passed through and treated by callers as "no status change".
type BotState string

const (
	StateConnecting      BotState = "CONNECTING"
	StateAttending       BotState = "ATTENDING"
	StateMediaProcessing BotState = "MEDIA_PROCESSING"
	StateMediaAvailable  BotState = "MEDIA_AVAILABLE"
)

// BotStatus is the result of a bot lookup.
type BotStatus struct {
	ID    string   `json:"id"`
	State BotState `json:"state"`
	Name  string   `json:"name,omitempty"`
}

// Media describes the recording artifacts available for a completed session.
// TranscriptURL is a short-lived signed URL; Summary and Title are fallback
// text sources when no transcript was produced.
type Media struct {
	TranscriptURL string `json:"transcript_url,omitempty"`
	RecordingURL  string `json:"recording_url,omitempty"`
	Summary       string `json:"summary,omitempty"`
	Title         string `json:"title,omitempty"`
}

// MeetingSettings configures what the bot records during a meeting.
type MeetingSettings struct {
	VideoRecording bool `json:"video_recording"`
	AudioRecording bool `json:"audio_recording"`
	Transcription  bool `json:"transcription"`
	Diarization    bool `json:"diarization,omitempty"`
	Summary        bool `json:"summary,omitempty"`
}

// InviteBotRequest asks the remote service to join a bot to a meeting by URL.
type InviteBotRequest struct {
	MeetingLink     string          `json:"meeting_link"`
	Name            string          `json:"name"`
	MeetingSettings MeetingSettings `json:"meeting_settings"`
}

// Conferencing carries the conferencing provider details of a calendar event.
type Conferencing struct {
	Provider string              `json:"provider,omitempty"`
	Details  ConferencingDetails `json:"details,omitempty"`
}

// ConferencingDetails holds the join URL for a conferencing entry.
type ConferencingDetails struct {
	URL string `json:"url,omitempty"`
}

// Timespan is the start/end of a calendar event in unix seconds.
type Timespan struct {
	StartTime     int64  `json:"start_time"`
	EndTime       int64  `json:"end_time"`
	StartTimezone string `json:"start_timezone,omitempty"`
	EndTimezone   string `json:"end_timezone,omitempty"`
}

// NotetakerConfig embeds a bot into a calendar event at creation time.
type NotetakerConfig struct {
	Name            string          `json:"name"`
	MeetingSettings MeetingSettings `json:"meeting_settings"`
}

// CreateEventRequest creates a calendar event, optionally with an embedded
// notetaker bot and conferencing details.
type CreateEventRequest struct {
	Title        string           `json:"title"`
	When         Timespan         `json:"when"`
	Conferencing *Conferencing    `json:"conferencing,omitempty"`
	Location     string           `json:"location,omitempty"`
	Notetaker    *NotetakerConfig `json:"notetaker,omitempty"`
}

// Event is a calendar event as returned by the remote service.
type Event struct {
	ID           string        `json:"id"`
	Title        string        `json:"title,omitempty"`
	Status       string        `json:"status,omitempty"`
	When         *Timespan     `json:"when,omitempty"`
	Conferencing *Conferencing `json:"conferencing,omitempty"`
	Notetaker    *BotStatus    `json:"notetaker,omitempty"`
}

// MeetingLink returns the join URL of the event's conferencing entry, or ""
// when the event has none.
func (e *Event) MeetingLink() string {
	if e.Conferencing == nil {
		return ""
	}
	return e.Conferencing.Details.URL
}

// ListEventsQuery filters a calendar event listing.
type ListEventsQuery struct {
	CalendarID string
	Start      time.Time
	End        time.Time
}

// Grant describes the authenticated calendar grant.
type Grant struct {
	ID       string `json:"id"`
	Email    string `json:"email,omitempty"`
	Provider string `json:"provider,omitempty"`
	Status   string `json:"grant_status,omitempty"`
}
