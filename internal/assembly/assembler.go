package assembly

import (
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"scribe/internal/chunk"
	"scribe/internal/logging"
	"scribe/internal/transcript"
)

// Assembler accumulates ordered chunk results into segments. It is not safe
// for concurrent use; the session loop is its only caller.
type Assembler struct {
	maxDuration    time.Duration
	defaultSpeaker string
	logger         *slog.Logger

	closed   []transcript.Segment
	open     *transcript.Segment
	speakers []transcript.SpeakerInfo
	last     time.Duration
	added    int
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithDefaultSpeaker sets the speaker used for unlabeled speech.
func WithDefaultSpeaker(id string) Option {
	return func(a *Assembler) {
		if id = strings.TrimSpace(id); id != "" {
			a.defaultSpeaker = id
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Assembler) {
		a.logger = logging.NewComponentLogger(logger, "assembler")
	}
}

// NewAssembler returns an assembler that closes a segment once extending it
// would exceed maxDuration. Zero disables the limit.
func NewAssembler(maxDuration time.Duration, opts ...Option) *Assembler {
	a := &Assembler{
		maxDuration:    maxDuration,
		defaultSpeaker: DefaultSpeaker,
		logger:         logging.NewComponentLogger(nil, "assembler"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Add folds the next result in capture order.
func (a *Assembler) Add(r chunk.Result) {
	a.added++
	label := ParseLabel(r.Label)
	text := strings.TrimSpace(r.Text)

	start := r.Start
	if start < a.last {
		start = a.last
	}
	end := r.End
	if end < start {
		end = start
	}

	if label.Event.IsEvent() {
		a.addEvent(label, text, start, end)
		return
	}
	if label.SpeakerID == "" {
		label.SpeakerID = a.defaultSpeaker
	}

	if text == "" {
		// Silence and placeholders only stretch the open speech segment.
		if a.open != nil && !a.open.Event.IsEvent() && end > a.open.End {
			a.open.End = end
		}
		return
	}

	if a.open != nil && !a.open.Event.IsEvent() && a.open.SpeakerID == label.SpeakerID && a.fits(end) {
		a.open.Text = joinText(a.open.Text, text)
		if end > a.open.End {
			a.open.End = end
		}
		return
	}
	a.startSegment(transcript.Segment{SpeakerID: label.SpeakerID, Text: text, Start: start, End: end})
}

func (a *Assembler) addEvent(label Label, text string, start, end time.Duration) {
	if a.open != nil && a.open.Event == label.Event && a.open.SpeakerID == label.SpeakerID && a.fits(end) {
		a.open.Text = joinText(a.open.Text, text)
		if end > a.open.End {
			a.open.End = end
		}
		return
	}
	a.startSegment(transcript.Segment{
		SpeakerID: label.SpeakerID,
		Text:      text,
		Start:     start,
		End:       end,
		Event:     label.Event,
	})
}

func (a *Assembler) fits(end time.Duration) bool {
	if a.maxDuration <= 0 || a.open == nil {
		return true
	}
	return end-a.open.Start <= a.maxDuration
}

func (a *Assembler) startSegment(seg transcript.Segment) {
	a.Close()
	a.open = &seg
	a.last = seg.Start
}

// Close closes the open segment, if any, and recomputes speaker aggregates.
func (a *Assembler) Close() {
	if a.open == nil {
		return
	}
	a.closed = append(a.closed, *a.open)
	a.open = nil
	a.speakers = transcript.ComputeSpeakers(a.closed)
	a.logger.Debug("segment closed",
		logging.Int("segments", len(a.closed)),
		logging.Int("speakers", len(a.speakers)),
	)
}

// Segments returns the closed segments followed by the open one.
func (a *Assembler) Segments() []transcript.Segment {
	out := make([]transcript.Segment, 0, len(a.closed)+1)
	out = append(out, a.closed...)
	if a.open != nil {
		out = append(out, *a.open)
	}
	return out
}

// Speakers returns the aggregates computed when segments last closed.
func (a *Assembler) Speakers() []transcript.SpeakerInfo {
	out := make([]transcript.SpeakerInfo, len(a.speakers))
	copy(out, a.speakers)
	return out
}

// Text returns the speech text of all segments.
func (a *Assembler) Text() string {
	return transcript.FullText(a.Segments())
}

// Len returns the number of results folded so far.
func (a *Assembler) Len() int {
	return a.added
}

const (
	boundaryPunct = ".,;:!?…"
	closingPunct  = ".,;:!?…)]}"
)

// joinText appends right to left with a single space, collapsing duplicate
// punctuation at the boundary and attaching closing punctuation directly.
func joinText(left, right string) string {
	left = strings.TrimSpace(left)
	right = strings.TrimSpace(right)
	if right == "" {
		return left
	}
	if left == "" {
		return right
	}
	if last, _ := utf8.DecodeLastRuneInString(left); strings.ContainsRune(boundaryPunct, last) {
		right = strings.TrimSpace(strings.TrimLeft(right, boundaryPunct))
		if right == "" {
			return left
		}
	}
	if first, _ := utf8.DecodeRuneInString(right); strings.ContainsRune(closingPunct, first) {
		return left + right
	}
	return left + " " + right
}
