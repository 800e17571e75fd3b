package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"scribe/internal/api"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

func sampleDocument() Document {
	segments := []transcript.Segment{
		{SpeakerID: "S1", Text: "Olá, tudo bem?", Start: 0, End: 2 * time.Second},
		{SpeakerID: "S2", Text: "Tudo ótimo.", Start: 2 * time.Second, End: 65 * time.Second},
		{Event: transcript.EventLaughter, Start: 65 * time.Second, End: 66 * time.Second},
	}
	version := api.FromVersion(transcript.Version{
		VersionMeta: transcript.VersionMeta{
			TranscriptionID: "t-1",
			Number:          2,
			EditorID:        "alice",
			ChangesSummary:  "fixed names",
			EditedAt:        time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
			SegmentCount:    len(segments),
		},
		Segments: segments,
		Text:     transcript.FullText(segments),
	})
	tr := api.FromTranscription(transcript.Transcription{ID: "t-1", Title: "Standup", Language: "pt", Segments: segments, CurrentVersion: 2})
	derived := []api.DerivedDTO{
		{ID: "d-1", SourceVersion: 2, Summary: "Greetings exchanged.", Insights: []string{"mood is good"}},
		{ID: "d-0", SourceVersion: 1, Summary: "stale"},
	}
	return NewDocument(tr, version, derived)
}

func TestParseFormat(t *testing.T) {
	tests := map[string]Format{"": FormatMarkdown, "MD": FormatMarkdown, "json": FormatJSON, "yml": FormatYAML}
	for input, want := range tests {
		got, err := ParseFormat(input)
		if err != nil || got != want {
			t.Fatalf("ParseFormat(%q) = %q, %v; want %q", input, got, err, want)
		}
	}
	if _, err := ParseFormat("docx"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewDocumentKeepsOnlyMatchingDerived(t *testing.T) {
	doc := sampleDocument()
	if len(doc.Derived) != 1 || doc.Derived[0].ID != "d-1" {
		t.Fatalf("expected derived content for version 2 only, got %+v", doc.Derived)
	}
}

func TestRenderMarkdown(t *testing.T) {
	out := RenderMarkdown(sampleDocument())
	for _, want := range []string{
		"# Standup\n",
		"- Version: 2 (alice, 2026-03-01T12:00:00Z)\n",
		"- Language: Portuguese\n",
		"- Duration: 1m6s\n",
		"## Summary\n\nGreetings exchanged.\n",
		"- mood is good\n",
		"[00:00-00:02] **Speaker 1:** Olá, tudo bem?\n",
		"[00:02-01:05] **Speaker 2:** Tudo ótimo.\n",
		"[01:05-01:06] _[LAUGHTER]_\n",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("markdown missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "stale") {
		t.Fatalf("markdown included derived content from another version")
	}
}

func TestWriteJSONAndYAML(t *testing.T) {
	doc := sampleDocument()

	var js bytes.Buffer
	if err := Write(&js, FormatJSON, doc); err != nil {
		t.Fatalf("Write json: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	version, _ := decoded["version"].(map[string]any)
	if version["versionNumber"] != float64(2) {
		t.Fatalf("expected camelCase version number, got %v", version)
	}

	var ym bytes.Buffer
	if err := Write(&ym, FormatYAML, doc); err != nil {
		t.Fatalf("Write yaml: %v", err)
	}
	var parsed struct {
		Title   string `yaml:"title"`
		Version struct {
			Number   int `yaml:"version_number"`
			Segments []struct {
				SpeakerID string `yaml:"speaker_id"`
				StartMS   int64  `yaml:"start_ms"`
			} `yaml:"segments"`
		} `yaml:"version"`
	}
	if err := yaml.Unmarshal(ym.Bytes(), &parsed); err != nil {
		t.Fatalf("decode yaml: %v", err)
	}
	if parsed.Title != "Standup" || parsed.Version.Number != 2 || len(parsed.Version.Segments) != 3 {
		t.Fatalf("unexpected yaml document %+v", parsed)
	}
	if parsed.Version.Segments[1].SpeakerID != "S2" || parsed.Version.Segments[1].StartMS != 2000 {
		t.Fatalf("unexpected yaml segment %+v", parsed.Version.Segments[1])
	}
}
