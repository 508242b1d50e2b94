package notetaker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
	"github.com/otherjamesbrown/minuteman/pkg/logging"
)

// Default client settings.
const (
	DefaultRequestTimeout = 30 * time.Second
	DefaultCalendarID     = "primary"
)

// Client is the REST client for the remote meeting-bot service. It is safe
// for concurrent use by many poller goroutines.
type Client struct {
	baseURL    string
	apiKey     string
	grantID    string
	httpClient *http.Client
	logger     logging.Logger
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "https://api.eu.nylas.com".
	BaseURL string

	// APIKey authenticates every request via a bearer token.
	APIKey string

	// GrantID identifies the calendar grant all operations run against.
	GrantID string

	// RequestTimeout bounds individual API calls (default 30s).
	RequestTimeout time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client

	Logger logging.Logger
}

// NewClient creates a Client for the given options.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("notetaker: base URL is required: %w", mmerrors.ErrValidation)
	}
	if opts.GrantID == "" {
		return nil, fmt.Errorf("notetaker: grant id is required: %w", mmerrors.ErrValidation)
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	log := opts.Logger
	if log == nil {
		log = logging.NewNopLogger()
	}

	return &Client{
		baseURL:    opts.BaseURL,
		apiKey:     opts.APIKey,
		grantID:    opts.GrantID,
		httpClient: httpClient,
		logger:     log.With(logging.F("component", "notetaker_client")),
	}, nil
}

// envelope is the response wrapper used by the remote API.
type envelope struct {
	Data json.RawMessage `json:"data"`
}

// apiError is the error body shape returned on non-2xx responses.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// FindBot returns the current status of a deployed bot.
func (c *Client) FindBot(ctx context.Context, sessionID string) (*BotStatus, error) {
	var status BotStatus
	path := fmt.Sprintf("/v3/grants/%s/notetakers/%s", url.PathEscape(c.grantID), url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetMedia returns the media artifacts for a session whose recording finished.
func (c *Client) GetMedia(ctx context.Context, sessionID string) (*Media, error) {
	var media Media
	path := fmt.Sprintf("/v3/grants/%s/notetakers/%s/media", url.PathEscape(c.grantID), url.PathEscape(sessionID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &media); err != nil {
		return nil, err
	}
	return &media, nil
}

// InviteBot joins a bot directly to a meeting by URL and returns its status,
// including the assigned session id.
func (c *Client) InviteBot(ctx context.Context, req *InviteBotRequest) (*BotStatus, error) {
	var status BotStatus
	path := fmt.Sprintf("/v3/grants/%s/notetakers", url.PathEscape(c.grantID))
	if err := c.do(ctx, http.MethodPost, path, nil, req, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// CreateEvent creates a calendar event on the given calendar.
func (c *Client) CreateEvent(ctx context.Context, calendarID string, req *CreateEventRequest) (*Event, error) {
	var event Event
	path := fmt.Sprintf("/v3/grants/%s/events", url.PathEscape(c.grantID))
	query := url.Values{"calendar_id": {orDefault(calendarID)}}
	if err := c.do(ctx, http.MethodPost, path, query, req, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// FindEvent fetches a single calendar event by id.
func (c *Client) FindEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	var event Event
	path := fmt.Sprintf("/v3/grants/%s/events/%s", url.PathEscape(c.grantID), url.PathEscape(eventID))
	query := url.Values{"calendar_id": {orDefault(calendarID)}}
	if err := c.do(ctx, http.MethodGet, path, query, nil, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents lists calendar events in a time range.
func (c *Client) ListEvents(ctx context.Context, q ListEventsQuery) ([]Event, error) {
	var events []Event
	path := fmt.Sprintf("/v3/grants/%s/events", url.PathEscape(c.grantID))
	query := url.Values{"calendar_id": {orDefault(q.CalendarID)}}
	if !q.Start.IsZero() {
		query.Set("start", strconv.FormatInt(q.Start.Unix(), 10))
	}
	if !q.End.IsZero() {
		query.Set("end", strconv.FormatInt(q.End.Unix(), 10))
	}
	if err := c.do(ctx, http.MethodGet, path, query, nil, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeleteEvent removes a calendar event. The remote service responds with an
// empty body on success.
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := fmt.Sprintf("/v3/grants/%s/events/%s", url.PathEscape(c.grantID), url.PathEscape(eventID))
	query := url.Values{"calendar_id": {orDefault(calendarID)}}
	return c.do(ctx, http.MethodDelete, path, query, nil, nil)
}

// GrantStatus verifies the calendar grant is valid and returns its details.
func (c *Client) GrantStatus(ctx context.Context) (*Grant, error) {
	var grant Grant
	path := fmt.Sprintf("/v3/grants/%s", url.PathEscape(c.grantID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// GrantID returns the configured calendar grant id.
func (c *Client) GrantID() string {
	return c.grantID
}

func orDefault(calendarID string) string {
	if calendarID == "" {
		return DefaultCalendarID
	}
	return calendarID
}

// do performs one API round trip and decodes the enveloped response into out.
// All failures are returned as categorized RemoteErrors.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return mmerrors.NewPermanentError(mmerrors.CodeBadRequest, "encoding request body", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return mmerrors.NewPermanentError(mmerrors.CodeBadRequest, "building request", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return mmerrors.NewTransientError(mmerrors.CodeTimeout, method+" "+path+" timed out", err)
		}
		return mmerrors.NewTransientError(mmerrors.CodeConnection, method+" "+path+" failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.classifyStatus(resp, method, path)
	}

	if out == nil {
		return nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return mmerrors.NewTransientError(mmerrors.CodeConnection, "reading response body", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Data == nil {
		// Some endpoints return the object unwrapped.
		if uerr := json.Unmarshal(raw, out); uerr != nil {
			return mmerrors.NewPermanentError(mmerrors.CodeDecode, "decoding response", uerr)
		}
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return mmerrors.NewPermanentError(mmerrors.CodeDecode, "decoding response data", err)
	}
	return nil
}

// classifyStatus maps a non-2xx response to a categorized error. 404 is
// not-found, 401/403 and other 4xx are permanent, everything retryable
// (408, 429, 5xx) is transient.
func (c *Client) classifyStatus(resp *http.Response, method, path string) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	message := fmt.Sprintf("%s %s: HTTP %d", method, path, resp.StatusCode)
	var body apiError
	if err := json.Unmarshal(raw, &body); err == nil && body.Error.Message != "" {
		message += ": " + body.Error.Message
	}

	c.logger.Warn("remote API error",
		logging.F("method", method),
		logging.F("path", path),
		logging.F("status", resp.StatusCode))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return mmerrors.NewRemoteNotFoundError(message)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return mmerrors.NewPermanentError(mmerrors.CodeUnauthorized, message, nil)
	case resp.StatusCode == http.StatusRequestTimeout:
		return mmerrors.NewTransientError(mmerrors.CodeTimeout, message, nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return mmerrors.NewTransientError(mmerrors.CodeRateLimited, message, nil)
	case resp.StatusCode >= 500:
		return mmerrors.NewTransientError(mmerrors.CodeServiceUnavailable, message, nil)
	default:
		return mmerrors.NewPermanentError(mmerrors.CodeBadRequest, message, nil)
	}
}
