package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/minuteman/pkg/recordings"
)

func TestNewBaseEvent(t *testing.T) {
	before := time.Now().UTC()
	event := NewBaseEvent("recording.status_changed")

	assert.Equal(t, "recording.status_changed", event.EventType)
	assert.Equal(t, "minuteman", event.Source)
	assert.Equal(t, "1.0", event.Version)
	assert.False(t, event.Timestamp.Before(before))
}

func TestNilPublisherDropsEvents(t *testing.T) {
	var p *Publisher

	ctx := context.Background()
	assert.NoError(t, p.PublishStatusChanged(ctx, "nt-1", recordings.StatusScheduled, recordings.StatusJoining, ""))
	assert.NoError(t, p.PublishTranscriptReady(ctx, "nt-1", 3, 2))
	assert.NoError(t, p.PublishBotScheduled(ctx, "nt-1", "evt-1", "https://meet.google.com/abc", "Google Meet"))
	assert.NoError(t, p.Close())
}

func TestStatusChangedEventSerialization(t *testing.T) {
	reason := "transcript fetch failed: status 404"
	event := StatusChangedEvent{
		BaseEvent:      NewBaseEvent("recording.status_changed"),
		SessionID:      "nt-1",
		PreviousStatus: "processing",
		Status:         "failed",
		FailureReason:  &reason,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "nt-1", decoded["session_id"])
	assert.Equal(t, "failed", decoded["status"])
	assert.Equal(t, reason, decoded["failure_reason"])
}

func TestBotScheduledEventOmitsEmptyEventID(t *testing.T) {
	event := BotScheduledEvent{
		BaseEvent:  NewBaseEvent("recording.bot_scheduled"),
		SessionID:  "nt-1",
		MeetingURL: "https://meet.google.com/abc",
		Provider:   "Google Meet",
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "event_id")
}
