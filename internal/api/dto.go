package api

import (
	"time"

	"scribe/internal/language"
	"scribe/internal/transcript"
)

// SegmentDTO is the external shape of a segment.
type SegmentDTO struct {
	SpeakerID string `json:"speakerId,omitempty" yaml:"speaker_id,omitempty"`
	Text      string `json:"text" yaml:"text"`
	StartMS   int64  `json:"startMs" yaml:"start_ms"`
	EndMS     int64  `json:"endMs" yaml:"end_ms"`
	EventType string `json:"eventType,omitempty" yaml:"event_type,omitempty"`
}

// SpeakerDTO is the external shape of a speaker aggregate.
type SpeakerDTO struct {
	ID              string `json:"id" yaml:"id"`
	DisplayName     string `json:"displayName" yaml:"display_name"`
	Color           string `json:"color" yaml:"color"`
	ColorIndex      int    `json:"colorIndex" yaml:"color_index"`
	TotalDurationMS int64  `json:"totalDurationMs" yaml:"total_duration_ms"`
	SegmentCount    int    `json:"segmentCount" yaml:"segment_count"`
}

// TranscriptionDTO is a transcription with its current view.
type TranscriptionDTO struct {
	ID             string       `json:"id" yaml:"id"`
	Title          string       `json:"title" yaml:"title"`
	Language       string       `json:"language,omitempty" yaml:"language,omitempty"`
	LanguageName   string       `json:"languageName,omitempty" yaml:"language_name,omitempty"`
	AudioKey       string       `json:"audioKey,omitempty" yaml:"audio_key,omitempty"`
	CurrentVersion int          `json:"currentVersion" yaml:"current_version"`
	CreatedAt      time.Time    `json:"createdAt" yaml:"created_at"`
	UpdatedAt      time.Time    `json:"updatedAt" yaml:"updated_at"`
	Text           string       `json:"text" yaml:"text"`
	Segments       []SegmentDTO `json:"segments" yaml:"segments"`
	Speakers       []SpeakerDTO `json:"speakers" yaml:"speakers"`
}

// VersionMetaDTO describes a version without its snapshot.
type VersionMetaDTO struct {
	TranscriptionID string    `json:"transcriptionId" yaml:"transcription_id"`
	Number          int       `json:"versionNumber" yaml:"version_number"`
	EditedAt        time.Time `json:"editedAt" yaml:"edited_at"`
	EditorID        string    `json:"editorId" yaml:"editor_id"`
	ChangesSummary  string    `json:"changesSummary,omitempty" yaml:"changes_summary,omitempty"`
	SegmentCount    int       `json:"segmentCount" yaml:"segment_count"`
}

// VersionDTO is one immutable snapshot.
type VersionDTO struct {
	VersionMetaDTO `yaml:",inline"`
	Text           string       `json:"text" yaml:"text"`
	Segments       []SegmentDTO `json:"segments" yaml:"segments"`
	Speakers       []SpeakerDTO `json:"speakers" yaml:"speakers"`
}

// DerivedDTO is a derived artifact.
type DerivedDTO struct {
	ID              string    `json:"id" yaml:"id"`
	TranscriptionID string    `json:"transcriptionId" yaml:"transcription_id"`
	SourceVersion   int       `json:"sourceVersion" yaml:"source_version"`
	Kind            string    `json:"kind" yaml:"kind"`
	Summary         string    `json:"summary" yaml:"summary"`
	Insights        []string  `json:"insights" yaml:"insights"`
	TokensUsed      int       `json:"tokensUsed" yaml:"tokens_used"`
	Model           string    `json:"model,omitempty" yaml:"model,omitempty"`
	CreatedAt       time.Time `json:"createdAt" yaml:"created_at"`
}

// FromSegments maps segments to DTOs.
func FromSegments(segments []transcript.Segment) []SegmentDTO {
	out := make([]SegmentDTO, 0, len(segments))
	for _, seg := range segments {
		out = append(out, SegmentDTO{
			SpeakerID: seg.SpeakerID,
			Text:      seg.Text,
			StartMS:   seg.Start.Milliseconds(),
			EndMS:     seg.End.Milliseconds(),
			EventType: string(seg.Event),
		})
	}
	return out
}

// FromSpeakers maps speaker aggregates to DTOs.
func FromSpeakers(speakers []transcript.SpeakerInfo) []SpeakerDTO {
	out := make([]SpeakerDTO, 0, len(speakers))
	for _, sp := range speakers {
		out = append(out, SpeakerDTO{
			ID:              sp.ID,
			DisplayName:     sp.DisplayName,
			Color:           sp.Color,
			ColorIndex:      sp.ColorIndex,
			TotalDurationMS: sp.TotalDuration.Milliseconds(),
			SegmentCount:    sp.SegmentCount,
		})
	}
	return out
}

// FromTranscription maps a transcription and its current view.
func FromTranscription(t transcript.Transcription) TranscriptionDTO {
	return TranscriptionDTO{
		ID:             t.ID,
		Title:          t.Title,
		Language:       t.Language,
		LanguageName:   languageName(t.Language),
		AudioKey:       t.AudioKey,
		CurrentVersion: t.CurrentVersion,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
		Text:           transcript.FullText(t.Segments),
		Segments:       FromSegments(t.Segments),
		Speakers:       FromSpeakers(transcript.ComputeSpeakers(t.Segments)),
	}
}

// FromVersionMeta maps version metadata.
func FromVersionMeta(m transcript.VersionMeta) VersionMetaDTO {
	return VersionMetaDTO{
		TranscriptionID: m.TranscriptionID,
		Number:          m.Number,
		EditedAt:        m.EditedAt,
		EditorID:        m.EditorID,
		ChangesSummary:  m.ChangesSummary,
		SegmentCount:    m.SegmentCount,
	}
}

// FromVersion maps a full version snapshot.
func FromVersion(v transcript.Version) VersionDTO {
	return VersionDTO{
		VersionMetaDTO: FromVersionMeta(v.VersionMeta),
		Text:           v.Text,
		Segments:       FromSegments(v.Segments),
		Speakers:       FromSpeakers(transcript.ComputeSpeakers(v.Segments)),
	}
}

// FromDerived maps a derived artifact.
func FromDerived(d transcript.DerivedContent) DerivedDTO {
	insights := d.Payload.Insights
	if insights == nil {
		insights = []string{}
	}
	return DerivedDTO{
		ID:              d.ID,
		TranscriptionID: d.TranscriptionID,
		SourceVersion:   d.SourceVersion,
		Kind:            d.Kind,
		Summary:         d.Payload.Summary,
		Insights:        insights,
		TokensUsed:      d.TokensUsed,
		Model:           d.Model,
		CreatedAt:       d.CreatedAt,
	}
}

func languageName(code string) string {
	if code == "" {
		return ""
	}
	return language.DisplayName(code)
}
