package transcript

import (
	"strings"
	"time"
)

// EditorSystem is the editor id recorded for versions committed by the pipeline.
const EditorSystem = "system"

// EventType tags a segment as a non-speech event. The zero value means speech.
type EventType string

// Non-speech event tags.
const (
	EventNone      EventType = ""
	EventLaughter  EventType = "LAUGHTER"
	EventApplause  EventType = "APPLAUSE"
	EventMusic     EventType = "MUSIC"
	EventSilence   EventType = "SILENCE"
	EventCrosstalk EventType = "CROSSTALK"
	EventOther     EventType = "OTHER"
)

// ParseEventType maps a label to an EventType. Matching is case-insensitive,
// blank means speech, and unknown non-blank labels become EventOther.
func ParseEventType(value string) EventType {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "":
		return EventNone
	case string(EventLaughter):
		return EventLaughter
	case string(EventApplause):
		return EventApplause
	case string(EventMusic):
		return EventMusic
	case string(EventSilence):
		return EventSilence
	case string(EventCrosstalk):
		return EventCrosstalk
	default:
		return EventOther
	}
}

// IsEvent reports whether the tag marks a non-speech event.
func (e EventType) IsEvent() bool {
	return e != EventNone
}

// Segment is a contiguous span of transcript text attributed to one speaker.
type Segment struct {
	SpeakerID string        `json:"speakerId" yaml:"speaker_id"`
	Text      string        `json:"text" yaml:"text"`
	Start     time.Duration `json:"start" yaml:"start"`
	End       time.Duration `json:"end" yaml:"end"`
	Event     EventType     `json:"eventType,omitempty" yaml:"event_type,omitempty"`
}

// Duration returns the span covered by the segment.
func (s Segment) Duration() time.Duration {
	if s.End <= s.Start {
		return 0
	}
	return s.End - s.Start
}

// Transcription is the logical root entity. Segments is the current view and
// always equals the snapshot of version CurrentVersion (empty when no
// version has been committed yet).
type Transcription struct {
	ID             string
	Title          string
	Language       string
	AudioKey       string
	Segments       []Segment
	CurrentVersion int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VersionMeta describes a committed version without its snapshot.
type VersionMeta struct {
	TranscriptionID string
	Number          int
	EditedAt        time.Time
	EditorID        string
	ChangesSummary  string
	SegmentCount    int
}

// Version is an immutable numbered snapshot of a transcription.
type Version struct {
	VersionMeta
	Segments []Segment
	Text     string
}

// Insights is the structured payload returned by insight derivation.
type Insights struct {
	Summary  string   `json:"summary" yaml:"summary"`
	Insights []string `json:"insights" yaml:"insights"`
}

// DerivedKindInsights identifies summary + insights artifacts.
const DerivedKindInsights = "insights"

// DerivedContent is an artifact computed from one version's text.
type DerivedContent struct {
	ID              string
	TranscriptionID string
	SourceVersion   int
	Kind            string
	Payload         Insights
	TokensUsed      int
	Model           string
	CreatedAt       time.Time
}

// CloneSegments returns a copy of segments so snapshots cannot be mutated
// through a shared backing array.
func CloneSegments(segments []Segment) []Segment {
	if len(segments) == 0 {
		return nil
	}
	out := make([]Segment, len(segments))
	copy(out, segments)
	return out
}

// FullText joins the speech text of segments with single spaces. Event
// segments contribute nothing.
func FullText(segments []Segment) string {
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if seg.Event.IsEvent() {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, " ")
}

// StartsNonDecreasing reports whether segment start times never go backwards.
func StartsNonDecreasing(segments []Segment) bool {
	for i := 1; i < len(segments); i++ {
		if segments[i].Start < segments[i-1].Start {
			return false
		}
	}
	return true
}
