package api

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"scribe/internal/services"
	"scribe/internal/transcript"
)

// SegmentInput is one segment of an inbound edit.
type SegmentInput struct {
	SpeakerID string `json:"speakerId" yaml:"speaker_id" validate:"required_without=EventType,max=64"`
	Text      string `json:"text" yaml:"text" validate:"max=20000"`
	StartMS   int64  `json:"startMs" yaml:"start_ms" validate:"gte=0"`
	EndMS     int64  `json:"endMs" yaml:"end_ms" validate:"gtefield=StartMS"`
	EventType string `json:"eventType,omitempty" yaml:"event_type,omitempty" validate:"omitempty,oneof=LAUGHTER APPLAUSE MUSIC SILENCE CROSSTALK OTHER"`
}

// EditRequest replaces the segment list of a transcription with a new
// version.
type EditRequest struct {
	EditorID       string         `json:"editorId" yaml:"editor_id" validate:"required,max=128"`
	ChangesSummary string         `json:"changesSummary" yaml:"changes_summary" validate:"max=500"`
	Segments       []SegmentInput `json:"segments" yaml:"segments" validate:"required,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Normalize trims free-text fields and upper-cases event tags.
func (r *EditRequest) Normalize() {
	r.EditorID = strings.TrimSpace(r.EditorID)
	r.ChangesSummary = strings.TrimSpace(r.ChangesSummary)
	for i := range r.Segments {
		seg := &r.Segments[i]
		seg.SpeakerID = strings.TrimSpace(seg.SpeakerID)
		seg.Text = strings.TrimSpace(seg.Text)
		seg.EventType = strings.ToUpper(strings.TrimSpace(seg.EventType))
	}
}

// Validate normalizes the request and checks it, returning an
// ErrValidation-tagged error listing every failed field.
func (r *EditRequest) Validate() error {
	r.Normalize()
	if err := validate.Struct(r); err != nil {
		return services.Wrap(services.ErrValidation, "api", "edit", strings.Join(formatValidationErrors(err), "; "), nil)
	}
	return nil
}

// ToSegments maps validated inputs to domain segments ordered by start
// time. Inputs with equal starts keep their relative order.
func (r *EditRequest) ToSegments() []transcript.Segment {
	out := make([]transcript.Segment, 0, len(r.Segments))
	for _, in := range r.Segments {
		out = append(out, transcript.Segment{
			SpeakerID: in.SpeakerID,
			Text:      in.Text,
			Start:     time.Duration(in.StartMS) * time.Millisecond,
			End:       time.Duration(in.EndMS) * time.Millisecond,
			Event:     transcript.ParseEventType(in.EventType),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

func formatValidationErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "EditRequest.")
		msg := fmt.Sprintf("field %q failed on %q", field, fe.Tag())
		if fe.Param() != "" {
			msg = fmt.Sprintf("%s (%s)", msg, fe.Param())
		}
		out = append(out, msg)
	}
	return out
}
