package assembly

import (
	"context"
	"strings"

	"scribe/internal/chunk"
	"scribe/internal/transcript"
)

// DefaultSpeaker is used when no speaker label is available.
const DefaultSpeaker = "S1"

// Label is the speaker and optional event tag attached to one chunk.
type Label struct {
	SpeakerID string
	Event     transcript.EventType
}

// String encodes the label as "S2", "[MUSIC]" or "S2 [LAUGHTER]".
func (l Label) String() string {
	speaker := strings.TrimSpace(l.SpeakerID)
	if !l.Event.IsEvent() {
		return speaker
	}
	tag := "[" + string(l.Event) + "]"
	if speaker == "" {
		return tag
	}
	return speaker + " " + tag
}

// ParseLabel decodes a label produced by String. A bracketed token is read
// as an event tag; the remainder is the speaker id.
func ParseLabel(value string) Label {
	value = strings.TrimSpace(value)
	open := strings.IndexByte(value, '[')
	if open < 0 {
		return Label{SpeakerID: value}
	}
	end := strings.IndexByte(value[open:], ']')
	if end < 0 {
		return Label{SpeakerID: value}
	}
	tag := value[open+1 : open+end]
	speaker := strings.TrimSpace(value[:open] + value[open+end+1:])
	return Label{SpeakerID: speaker, Event: transcript.ParseEventType(tag)}
}

// Diarizer labels a chunk with a speaker and optional non-speech event.
type Diarizer interface {
	Classify(ctx context.Context, c chunk.AudioChunk) (Label, error)
}

// SingleSpeaker attributes every chunk to one speaker.
type SingleSpeaker struct {
	ID string
}

func (s SingleSpeaker) Classify(context.Context, chunk.AudioChunk) (Label, error) {
	id := strings.TrimSpace(s.ID)
	if id == "" {
		id = DefaultSpeaker
	}
	return Label{SpeakerID: id}, nil
}

// Static returns pre-computed labels keyed by chunk sequence number.
// Unknown sequence numbers fall back to the default speaker.
type Static map[int64]Label

func (s Static) Classify(_ context.Context, c chunk.AudioChunk) (Label, error) {
	if label, ok := s[c.Seq]; ok {
		return label, nil
	}
	return Label{SpeakerID: DefaultSpeaker}, nil
}

// MarkerDiarizer reads the label the capture side attached to the chunk.
type MarkerDiarizer struct {
	Default string
}

func (m MarkerDiarizer) Classify(_ context.Context, c chunk.AudioChunk) (Label, error) {
	label := ParseLabel(c.Label)
	if label.SpeakerID == "" && !label.Event.IsEvent() {
		label.SpeakerID = strings.TrimSpace(m.Default)
		if label.SpeakerID == "" {
			label.SpeakerID = DefaultSpeaker
		}
	}
	return label, nil
}
