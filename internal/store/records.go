package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"scribe/internal/transcript"
)

// segmentRecord is the persisted shape of one segment inside segments_json.
// Times are stored as integer milliseconds.
type segmentRecord struct {
	SpeakerID string `json:"speaker_id,omitempty"`
	Text      string `json:"text"`
	StartMS   int64  `json:"start_ms"`
	EndMS     int64  `json:"end_ms"`
	EventType string `json:"event_type,omitempty"`
}

type transcriptionRecord struct {
	ID             string
	Title          string
	Language       string
	AudioKey       sql.NullString
	SegmentsJSON   string
	CurrentVersion int
	CreatedAt      string
	UpdatedAt      string
}

type versionRecord struct {
	TranscriptionID string
	Number          int
	SegmentsJSON    string
	FullText        string
	SegmentCount    int
	EditedAt        string
	EditorID        string
	ChangesSummary  string
}

type derivedRecord struct {
	ID              string
	TranscriptionID string
	SourceVersion   int
	Kind            string
	PayloadJSON     string
	TokensUsed      int
	Model           string
	CreatedAt       string
}

const (
	transcriptionColumns = "id, title, language, audio_key, segments_json, current_version, created_at, updated_at"
	versionMetaColumns   = "transcription_id, version_number, segment_count, edited_at, editor_id, changes_summary"
	versionColumns       = "transcription_id, version_number, segments_json, full_text, segment_count, edited_at, editor_id, changes_summary"
	derivedColumns       = "id, transcription_id, source_version, kind, payload_json, tokens_used, model, created_at"
)

type scanner interface{ Scan(dest ...any) error }

func scanTranscription(row scanner) (transcriptionRecord, error) {
	var rec transcriptionRecord
	err := row.Scan(
		&rec.ID,
		&rec.Title,
		&rec.Language,
		&rec.AudioKey,
		&rec.SegmentsJSON,
		&rec.CurrentVersion,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	return rec, err
}

func scanVersion(row scanner) (versionRecord, error) {
	var rec versionRecord
	err := row.Scan(
		&rec.TranscriptionID,
		&rec.Number,
		&rec.SegmentsJSON,
		&rec.FullText,
		&rec.SegmentCount,
		&rec.EditedAt,
		&rec.EditorID,
		&rec.ChangesSummary,
	)
	return rec, err
}

func scanVersionMeta(row scanner) (versionRecord, error) {
	var rec versionRecord
	err := row.Scan(
		&rec.TranscriptionID,
		&rec.Number,
		&rec.SegmentCount,
		&rec.EditedAt,
		&rec.EditorID,
		&rec.ChangesSummary,
	)
	return rec, err
}

func scanDerived(row scanner) (derivedRecord, error) {
	var rec derivedRecord
	err := row.Scan(
		&rec.ID,
		&rec.TranscriptionID,
		&rec.SourceVersion,
		&rec.Kind,
		&rec.PayloadJSON,
		&rec.TokensUsed,
		&rec.Model,
		&rec.CreatedAt,
	)
	return rec, err
}

func encodeSegments(segments []transcript.Segment) (string, error) {
	records := make([]segmentRecord, 0, len(segments))
	for _, seg := range segments {
		records = append(records, segmentRecord{
			SpeakerID: seg.SpeakerID,
			Text:      seg.Text,
			StartMS:   seg.Start.Milliseconds(),
			EndMS:     seg.End.Milliseconds(),
			EventType: string(seg.Event),
		})
	}
	data, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encode segments: %w", err)
	}
	return string(data), nil
}

func decodeSegments(raw string) ([]transcript.Segment, error) {
	if raw == "" {
		return nil, nil
	}
	var records []segmentRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, fmt.Errorf("decode segments: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	segments := make([]transcript.Segment, 0, len(records))
	for _, rec := range records {
		segments = append(segments, transcript.Segment{
			SpeakerID: rec.SpeakerID,
			Text:      rec.Text,
			Start:     time.Duration(rec.StartMS) * time.Millisecond,
			End:       time.Duration(rec.EndMS) * time.Millisecond,
			Event:     transcript.ParseEventType(rec.EventType),
		})
	}
	return segments, nil
}

func (r transcriptionRecord) toDomain() (*transcript.Transcription, error) {
	segments, err := decodeSegments(r.SegmentsJSON)
	if err != nil {
		return nil, err
	}
	return &transcript.Transcription{
		ID:             r.ID,
		Title:          r.Title,
		Language:       r.Language,
		AudioKey:       r.AudioKey.String,
		Segments:       segments,
		CurrentVersion: r.CurrentVersion,
		CreatedAt:      parseTime(r.CreatedAt),
		UpdatedAt:      parseTime(r.UpdatedAt),
	}, nil
}

func (r versionRecord) meta() transcript.VersionMeta {
	return transcript.VersionMeta{
		TranscriptionID: r.TranscriptionID,
		Number:          r.Number,
		EditedAt:        parseTime(r.EditedAt),
		EditorID:        r.EditorID,
		ChangesSummary:  r.ChangesSummary,
		SegmentCount:    r.SegmentCount,
	}
}

func (r versionRecord) toDomain() (*transcript.Version, error) {
	segments, err := decodeSegments(r.SegmentsJSON)
	if err != nil {
		return nil, err
	}
	return &transcript.Version{
		VersionMeta: r.meta(),
		Segments:    segments,
		Text:        r.FullText,
	}, nil
}

func (r derivedRecord) toDomain() (*transcript.DerivedContent, error) {
	var payload transcript.Insights
	if err := json.Unmarshal([]byte(r.PayloadJSON), &payload); err != nil {
		return nil, fmt.Errorf("decode derived payload: %w", err)
	}
	return &transcript.DerivedContent{
		ID:              r.ID,
		TranscriptionID: r.TranscriptionID,
		SourceVersion:   r.SourceVersion,
		Kind:            r.Kind,
		Payload:         payload,
		TokensUsed:      r.TokensUsed,
		Model:           r.Model,
		CreatedAt:       parseTime(r.CreatedAt),
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTime(value string) time.Time {
	t, err := parseTimeString(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
