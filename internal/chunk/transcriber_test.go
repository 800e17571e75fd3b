package chunk_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"scribe/internal/chunk"
	"scribe/internal/services"
)

type recordingSTT struct {
	calls int
	out   chunk.Transcription
	err   error
}

func (r *recordingSTT) Transcribe(_ context.Context, _ []byte, _ string) (chunk.Transcription, error) {
	r.calls++
	return r.out, r.err
}

type codedError struct {
	code string
}

func (e codedError) Error() string  { return "provider: " + e.code }
func (e codedError) NoSpeech() bool { return e.code == "no_speech" }

func TestTranscribeEmptyChunkSkipsProvider(t *testing.T) {
	stt := &recordingSTT{}
	tr := chunk.NewTranscriber(stt, nil)

	_, err := tr.Transcribe(context.Background(), chunk.AudioChunk{Seq: 3})
	if !errors.Is(err, services.ErrEmptyChunk) {
		t.Fatalf("expected ErrEmptyChunk, got %v", err)
	}
	if stt.calls != 0 {
		t.Fatalf("expected no provider calls, got %d", stt.calls)
	}
}

func TestTranscribeSuccessCarriesTiming(t *testing.T) {
	conf := 0.82
	stt := &recordingSTT{out: chunk.Transcription{Text: "  Ola  ", Language: "pt", Confidence: &conf}}
	tr := chunk.NewTranscriber(stt, nil)

	res, err := tr.Transcribe(context.Background(), chunk.AudioChunk{
		Seq:         7,
		Audio:       []byte{1, 2, 3},
		StartOffset: 2 * time.Second,
		Duration:    1500 * time.Millisecond,
		Label:       "S2",
	})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if stt.calls != 1 {
		t.Fatalf("expected exactly one provider call, got %d", stt.calls)
	}
	if res.Seq != 7 || res.Text != "Ola" || res.Language != "pt" || res.Label != "S2" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Start != 2*time.Second || res.End != 3500*time.Millisecond {
		t.Fatalf("unexpected timing %v..%v", res.Start, res.End)
	}
	if res.Confidence == nil || *res.Confidence != conf {
		t.Fatalf("expected confidence to be carried")
	}
}

func TestTranscribeClassifiesProviderErrors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantEmpty bool
	}{
		{name: "sentinel", err: services.ErrNoSpeech, wantEmpty: true},
		{name: "coded no speech", err: codedError{code: "no_speech"}, wantEmpty: true},
		{name: "coded other", err: codedError{code: "rate_limited"}},
		{name: "keyword fallback", err: errors.New("400: Audio file is too short. Minimum audio length is 0.1 seconds."), wantEmpty: true},
		{name: "network", err: errors.New("connection reset by peer")},
		{name: "deadline", err: context.DeadlineExceeded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stt := &recordingSTT{err: tt.err}
			tr := chunk.NewTranscriber(stt, nil)
			res, err := tr.Transcribe(context.Background(), chunk.AudioChunk{Seq: 1, Audio: []byte{0}})
			if stt.calls != 1 {
				t.Fatalf("expected one call, got %d", stt.calls)
			}
			if tt.wantEmpty {
				if err != nil {
					t.Fatalf("expected silence to succeed, got %v", err)
				}
				if res.Text != "" {
					t.Fatalf("expected empty text, got %q", res.Text)
				}
				return
			}
			if !errors.Is(err, services.ErrProviderFailure) {
				t.Fatalf("expected ErrProviderFailure, got %v", err)
			}
			if !errors.Is(err, tt.err) {
				t.Fatalf("expected cause to be preserved, got %v", err)
			}
		})
	}
}

func TestTranscribeWithoutProviderIsConfigurationError(t *testing.T) {
	tr := chunk.NewTranscriber(nil, nil)
	_, err := tr.Transcribe(context.Background(), chunk.AudioChunk{Seq: 1, Audio: []byte{1}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestTranscribeRejectedCredentialsAreNotRetryable(t *testing.T) {
	rejected := services.Wrap(services.ErrConfiguration, "openai_stt", "transcribe", "credentials rejected", nil)
	tr := chunk.NewTranscriber(&recordingSTT{err: rejected}, nil)
	_, err := tr.Transcribe(context.Background(), chunk.AudioChunk{Seq: 1, Audio: []byte{1}})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if services.Retryable(err) {
		t.Fatalf("expected rejected credentials to be final")
	}
}
