// Package events provides event publishing for recording lifecycle changes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/otherjamesbrown/minuteman/pkg/logging"
	"github.com/otherjamesbrown/minuteman/pkg/recordings"
)

// Redis channels for recording lifecycle events
const (
	ChannelStatusChanged   = "events.recording.status_changed"
	ChannelTranscriptReady = "events.recording.transcript_ready"
	ChannelBotScheduled    = "events.recording.bot_scheduled"
)

// BaseEvent contains common fields for all events.
type BaseEvent struct {
	EventType     string    `json:"event_type"`
	Timestamp     time.Time `json:"timestamp"`
	CorrelationID *string   `json:"correlation_id,omitempty"`
	Source        string    `json:"source"`
	Version       string    `json:"version"`
}

// NewBaseEvent creates a BaseEvent with sensible defaults.
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		Source:    "minuteman",
		Version:   "1.0",
	}
}

// StatusChangedEvent is published whenever a recording transitions status.
type StatusChangedEvent struct {
	BaseEvent

	SessionID      string  `json:"session_id"`
	PreviousStatus string  `json:"previous_status"`
	Status         string  `json:"status"`
	FailureReason  *string `json:"failure_reason,omitempty"`
}

// TranscriptReadyEvent is published when a transcript has been persisted.
type TranscriptReadyEvent struct {
	BaseEvent

	SessionID    string `json:"session_id"`
	SegmentCount int    `json:"segment_count"`
	SpeakerCount int    `json:"speaker_count"`
}

// BotScheduledEvent is published when a bot is invited to a meeting.
type BotScheduledEvent struct {
	BaseEvent

	SessionID  string  `json:"session_id"`
	EventID    *string `json:"event_id,omitempty"`
	MeetingURL string  `json:"meeting_url"`
	Provider   string  `json:"provider"`
}

// Publisher publishes recording events to Redis. A nil Publisher is valid and
// drops every event, so callers never have to branch on whether eventing is
// configured.
type Publisher struct {
	client *redis.Client
	logger logging.Logger
}

// PublisherConfig holds Redis connection configuration.
type PublisherConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *redis.Client, logger logging.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.With(logging.F("component", "event_publisher")),
	}
}

// NewPublisherFromConfig creates a publisher with a new Redis connection.
func NewPublisherFromConfig(cfg PublisherConfig, logger logging.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewPublisher(client, logger), nil
}

// PublishStatusChanged publishes a status transition for a recording session.
func (p *Publisher) PublishStatusChanged(ctx context.Context, sessionID string, from, to recordings.Status, failureReason string) error {
	if p == nil {
		return nil
	}

	event := StatusChangedEvent{
		BaseEvent:      NewBaseEvent("recording.status_changed"),
		SessionID:      sessionID,
		PreviousStatus: string(from),
		Status:         string(to),
	}
	if failureReason != "" {
		event.FailureReason = &failureReason
	}

	return p.publish(ctx, ChannelStatusChanged, event)
}

// PublishTranscriptReady publishes a transcript availability event.
func (p *Publisher) PublishTranscriptReady(ctx context.Context, sessionID string, segmentCount, speakerCount int) error {
	if p == nil {
		return nil
	}

	event := TranscriptReadyEvent{
		BaseEvent:    NewBaseEvent("recording.transcript_ready"),
		SessionID:    sessionID,
		SegmentCount: segmentCount,
		SpeakerCount: speakerCount,
	}

	return p.publish(ctx, ChannelTranscriptReady, event)
}

// PublishBotScheduled publishes a bot invitation event.
func (p *Publisher) PublishBotScheduled(ctx context.Context, sessionID, eventID, meetingURL, provider string) error {
	if p == nil {
		return nil
	}

	event := BotScheduledEvent{
		BaseEvent:  NewBaseEvent("recording.bot_scheduled"),
		SessionID:  sessionID,
		MeetingURL: meetingURL,
		Provider:   provider,
	}
	if eventID != "" {
		event.EventID = &eventID
	}

	return p.publish(ctx, ChannelBotScheduled, event)
}

// publish serializes and publishes an event to Redis.
func (p *Publisher) publish(ctx context.Context, channel string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.client.Publish(ctx, channel, data).Err(); err != nil {
		p.logger.Error("Failed to publish event",
			logging.Err(err),
			logging.F("channel", channel))
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}

	p.logger.Debug("Event published",
		logging.F("channel", channel),
		logging.F("payload_size", len(data)))

	return nil
}

// Close closes the Redis connection.
func (p *Publisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
