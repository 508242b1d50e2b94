// Package recordings provides the tracking record model and document store
// for notetaker bot sessions.
package recordings

import (
	"time"

	"github.com/otherjamesbrown/minuteman/pkg/transcript"
)

// Status is the persisted lifecycle state of a tracked session. Transitions
// are monotonic along scheduled → joining → recording → processing → ready,
// with failed and timeout as failure exits. Only the owning poller mutates
// status after creation.
type Status string

const (
	StatusScheduled  Status = "scheduled"
	StatusJoining    Status = "joining"
	StatusRecording  Status = "recording"
	StatusProcessing Status = "processing"
	StatusReady      Status = "ready"
	StatusFailed     Status = "failed"
	StatusTimeout    Status = "timeout"
)

// statusRank orders statuses along the success path so that writers can
// refuse to move backwards. Terminal failure states rank above everything.
var statusRank = map[Status]int{
	StatusScheduled:  0,
	StatusJoining:    1,
	StatusRecording:  2,
	StatusProcessing: 3,
	StatusReady:      4,
	StatusFailed:     4,
	StatusTimeout:    4,
}

// Terminal reports whether no further transition can occur from s.
func (s Status) Terminal() bool {
	return s == StatusReady || s == StatusFailed || s == StatusTimeout
}

// Before reports whether s precedes other on the success path. Unknown
// statuses never precede anything.
func (s Status) Before(other Status) bool {
	sr, ok1 := statusRank[s]
	or, ok2 := statusRank[other]
	return ok1 && ok2 && sr < or
}

// DisplayStatus returns the human-facing label for a status.
func (s Status) DisplayStatus() string {
	switch s {
	case StatusScheduled:
		return "Scheduled"
	case StatusJoining:
		return "Joining"
	case StatusRecording:
		return "Attending"
	case StatusProcessing:
		return "Processing"
	case StatusReady:
		return "Media Available"
	case StatusFailed:
		return "Failed"
	case StatusTimeout:
		return "Timeout"
	default:
		return string(s)
	}
}

// Message returns the explanatory status message served to clients.
func (s Status) Message() string {
	switch s {
	case StatusScheduled:
		return "Meeting hasn't started yet. The bot will automatically join at the scheduled time."
	case StatusJoining:
		return "Bot is joining the meeting."
	case StatusRecording:
		return "Bot is in the meeting, recording and transcribing."
	case StatusProcessing:
		return "Meeting ended. Generating transcript."
	case StatusReady:
		return "Transcript is ready."
	case StatusFailed:
		return "Transcription failed."
	case StatusTimeout:
		return "Transcription timed out."
	default:
		return ""
	}
}

// Record is the tracking document for one bot session. ID is the session id
// assigned by the remote service and is the primary key.
type Record struct {
	ID            string               `json:"id"`
	Status        Status               `json:"status"`
	Transcript    []transcript.Segment `json:"transcript,omitempty"`
	FailureReason string               `json:"failure_reason,omitempty"`
	EventID       string               `json:"event_id,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

// Update is a partial record update with merge semantics: nil fields are left
// untouched by the store.
type Update struct {
	Status        *Status
	Transcript    *[]transcript.Segment
	FailureReason *string
}

// StatusUpdate builds an Update that only changes the status.
func StatusUpdate(s Status) Update {
	return Update{Status: &s}
}

// TerminalUpdate builds the single atomic update written when a poller
// reaches a terminal outcome.
func TerminalUpdate(s Status, segments []transcript.Segment, reason string) Update {
	u := Update{Status: &s}
	if segments != nil {
		u.Transcript = &segments
	}
	if reason != "" {
		u.FailureReason = &reason
	}
	return u
}
