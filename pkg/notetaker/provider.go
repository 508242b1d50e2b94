package notetaker

import (
	"fmt"
	"strings"
	"time"

	mmerrors "github.com/otherjamesbrown/minuteman/pkg/errors"
)

// Provider names the remote service accepts for conferencing entries. The
// values must match exactly.
const (
	ProviderGoogleMeet       = "Google Meet"
	ProviderZoom             = "Zoom Meeting"
	ProviderMicrosoftTeams   = "Microsoft Teams"
	ProviderSkypeForBusiness = "Skype for Business"
	ProviderSkypeForConsumer = "Skype for Consumer"
)

// ScheduleTimeLayout is the wire format for schedule requests,
// e.g. "2025-10-07 10:46 AM".
const ScheduleTimeLayout = "2006-01-02 03:04 PM"

// DateLayout is the wire format for date-range queries, e.g. "2025-10-07".
const DateLayout = "2006-01-02"

// DetectProvider maps a meeting URL to the conferencing provider name the
// remote service expects. Unknown hosts fall back to Google Meet, which the
// service treats as a generic conferencing link. Zoom personal-room and
// web-client links are rejected: the bot cannot join them.
func DetectProvider(meetingURL string) (string, error) {
	if meetingURL == "" {
		return "", fmt.Errorf("meeting URL is required: %w", mmerrors.ErrValidation)
	}

	lower := strings.ToLower(meetingURL)

	switch {
	case strings.Contains(lower, "meet.google.com"):
		return ProviderGoogleMeet, nil
	case strings.Contains(lower, "zoom.us"):
		if strings.Contains(lower, "/wc/") || !strings.Contains(lower, "/j/") {
			return "", fmt.Errorf("invalid Zoom meeting link, use a standard join link (https://zoom.us/j/...): %w", mmerrors.ErrValidation)
		}
		return ProviderZoom, nil
	case strings.Contains(lower, "teams.microsoft.com"), strings.Contains(lower, "teams.live.com"):
		return ProviderMicrosoftTeams, nil
	case strings.Contains(lower, "skype.com"):
		if strings.Contains(lower, "business") {
			return ProviderSkypeForBusiness, nil
		}
		return ProviderSkypeForConsumer, nil
	default:
		return ProviderGoogleMeet, nil
	}
}

// ParseScheduleTime parses a "YYYY-MM-DD HH:MM AM/PM" wall-clock time in the
// given location.
func ParseScheduleTime(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(ScheduleTimeLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date/time %q, use 'YYYY-MM-DD HH:MM AM/PM': %w", value, mmerrors.ErrValidation)
	}
	return t, nil
}

// ParseDate parses a "YYYY-MM-DD" date in the given location, at midnight.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, use 'YYYY-MM-DD': %w", value, mmerrors.ErrValidation)
	}
	return t, nil
}
