package transcript

import (
	"encoding/json"
	"strings"
)

// rawEntry is the optimistic shape of a single transcript entry. Payloads from
// the notetaker service also carry timing fields; only speaker and text matter
// here, everything else is ignored.
type rawEntry struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Normalize converts an arbitrary JSON payload into an ordered sequence of
// segments. It accepts the four shapes observed from the notetaker service:
// a wrapper object with a "transcript" array field, a bare array, a single
// entry object, or a plain JSON string. Input that does not decode as JSON at
// all yields a single raw-text segment. Entries whose text is empty after
// trimming are dropped.
//
// Normalize is total: it never fails, the worst case is an empty slice.
func Normalize(raw []byte) []Segment {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return nil
	}

	var value interface{}
	if err := json.Unmarshal([]byte(trimmed), &value); err != nil {
		// Not structured data. Keep it verbatim rather than losing it.
		return []Segment{{Speaker: RawTextSpeaker, Text: trimmed}}
	}

	return normalizeValue(value)
}

// normalizeValue applies the unwrap rules to an already-decoded JSON value.
func normalizeValue(value interface{}) []Segment {
	var entries []interface{}

	switch v := value.(type) {
	case map[string]interface{}:
		if inner, ok := v[wrapperFieldName].([]interface{}); ok {
			entries = inner
		} else {
			entries = []interface{}{v}
		}
	case []interface{}:
		entries = v
	default:
		entries = []interface{}{v}
	}

	segments := make([]Segment, 0, len(entries))
	for _, entry := range entries {
		if seg, ok := normalizeEntry(entry); ok {
			segments = append(segments, seg)
		}
	}
	return segments
}

// normalizeEntry converts one decoded entry into a segment. The bool result is
// false when the entry carries no usable text.
func normalizeEntry(entry interface{}) (Segment, bool) {
	switch e := entry.(type) {
	case map[string]interface{}:
		text := strings.TrimSpace(stringField(e, "text"))
		if text == "" {
			return Segment{}, false
		}
		speaker := strings.TrimSpace(stringField(e, "speaker"))
		if speaker == "" {
			speaker = DefaultSpeaker
		}
		return Segment{Speaker: speaker, Text: text}, true
	case string:
		text := strings.TrimSpace(e)
		if text == "" {
			return Segment{}, false
		}
		return Segment{Speaker: DefaultSpeaker, Text: text}, true
	default:
		// Numbers, booleans, nulls and nested arrays carry no transcript text.
		return Segment{}, false
	}
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// EmptyPlaceholder returns the single System segment stored when the meeting
// produced a valid but empty transcript. An empty meeting is not an error.
func EmptyPlaceholder(sessionID string) []Segment {
	return []Segment{{
		Speaker: SystemSpeaker,
		Text: "Meeting recorded (ID: " + sessionID + ") but no transcript content available. " +
			"The meeting may have been too short, silent, or on a platform without transcription support.",
	}}
}

// UnavailablePlaceholder returns the single System segment stored when media
// was available but carried no transcript reference and no fallback text.
func UnavailablePlaceholder(sessionID string) []Segment {
	return []Segment{{
		Speaker: SystemSpeaker,
		Text:    "Meeting recorded but transcript unavailable. Meeting ID: " + sessionID,
	}}
}
