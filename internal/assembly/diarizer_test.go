package assembly

import (
	"context"
	"testing"

	"scribe/internal/chunk"
	"scribe/internal/transcript"
)

func TestParseLabelRoundTrip(t *testing.T) {
	tests := []struct {
		raw  string
		want Label
	}{
		{"S2", Label{SpeakerID: "S2"}},
		{"[music]", Label{Event: transcript.EventMusic}},
		{"S3 [LAUGHTER]", Label{SpeakerID: "S3", Event: transcript.EventLaughter}},
		{"", Label{}},
		{"S1 [", Label{SpeakerID: "S1 ["}},
	}
	for _, tt := range tests {
		got := ParseLabel(tt.raw)
		if got != tt.want {
			t.Fatalf("ParseLabel(%q) = %+v, want %+v", tt.raw, got, tt.want)
		}
	}
	label := Label{SpeakerID: "S3", Event: transcript.EventLaughter}
	if ParseLabel(label.String()) != label {
		t.Fatalf("round trip failed for %q", label.String())
	}
}

func TestDiarizers(t *testing.T) {
	ctx := context.Background()
	c := chunk.AudioChunk{Seq: 4, Label: "[APPLAUSE]"}

	got, _ := SingleSpeaker{}.Classify(ctx, c)
	if got.SpeakerID != DefaultSpeaker || got.Event.IsEvent() {
		t.Fatalf("SingleSpeaker = %+v", got)
	}

	static := Static{4: {SpeakerID: "S9"}}
	if got, _ := static.Classify(ctx, c); got.SpeakerID != "S9" {
		t.Fatalf("Static = %+v", got)
	}
	if got, _ := static.Classify(ctx, chunk.AudioChunk{Seq: 5}); got.SpeakerID != DefaultSpeaker {
		t.Fatalf("Static fallback = %+v", got)
	}

	marker := MarkerDiarizer{Default: "host"}
	if got, _ := marker.Classify(ctx, c); got.Event != transcript.EventApplause {
		t.Fatalf("MarkerDiarizer event = %+v", got)
	}
	if got, _ := marker.Classify(ctx, chunk.AudioChunk{}); got.SpeakerID != "host" {
		t.Fatalf("MarkerDiarizer default = %+v", got)
	}
}
