// Package transcript provides normalization of raw notetaker transcript
// payloads into an ordered sequence of speaker-attributed segments.
package transcript

import "strings"

// Default speaker labels used when the payload carries no attribution.
const (
	DefaultSpeaker    = "Speaker"
	SystemSpeaker     = "System"
	RawTextSpeaker    = "Transcript"
	wrapperFieldName  = "transcript"
)

// Segment represents a single speaker-attributed unit of a transcript.
type Segment struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Speakers returns the unique speaker names in order of first appearance.
func Speakers(segments []Segment) []string {
	seen := make(map[string]struct{}, len(segments))
	var out []string
	for _, s := range segments {
		if _, ok := seen[s.Speaker]; ok {
			continue
		}
		seen[s.Speaker] = struct{}{}
		out = append(out, s.Speaker)
	}
	return out
}

// Combined renders segments as plain text, one "Speaker: text" paragraph per
// segment. This is the representation served to read paths and mirrored into
// the fallback cache.
func Combined(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if s.Text == "" {
			continue
		}
		if s.Speaker == "" {
			parts = append(parts, s.Text)
			continue
		}
		parts = append(parts, s.Speaker+": "+s.Text)
	}
	return strings.Join(parts, "\n\n")
}
