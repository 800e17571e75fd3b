package chunk

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"scribe/internal/logging"
	"scribe/internal/services"
)

// legacyNoSpeechPhrases are matched against provider error text when no
// structured signal is available.
var legacyNoSpeechPhrases = []string{
	"no speech",
	"audio is too short",
	"audio file is empty",
	"too short",
}

// Transcriber wraps a SpeechToText capability with chunk validation and
// error classification.
type Transcriber struct {
	stt    SpeechToText
	logger *slog.Logger
}

// NewTranscriber constructs a Transcriber.
func NewTranscriber(stt SpeechToText, logger *slog.Logger) *Transcriber {
	return &Transcriber{
		stt:    stt,
		logger: logging.NewComponentLogger(logger, "chunk-transcriber"),
	}
}

// Transcribe sends one chunk to the provider. Silence is returned as a
// successful result with empty text.
func (t *Transcriber) Transcribe(ctx context.Context, c AudioChunk) (Result, error) {
	result := Result{
		Seq:   c.Seq,
		Start: c.StartOffset,
		End:   c.End(),
		Label: c.Label,
	}
	if len(c.Audio) == 0 {
		return result, services.Wrap(services.ErrEmptyChunk, "chunk", "transcribe", "audio has zero length", nil)
	}
	if t == nil || t.stt == nil {
		return result, services.Wrap(services.ErrConfiguration, "chunk", "transcribe", "speech-to-text capability not configured", nil)
	}

	ctx = services.WithChunkSeq(ctx, c.Seq)
	logger := logging.WithContext(ctx, t.logger)

	out, err := t.stt.Transcribe(ctx, c.Audio, c.MimeType)
	if err != nil {
		noSpeech, fragile := classifyNoSpeech(err)
		if !noSpeech {
			if errors.Is(err, services.ErrConfiguration) {
				return result, err
			}
			return result, services.Wrap(services.ErrProviderFailure, "chunk", "transcribe", "speech-to-text call failed", err)
		}
		if fragile {
			logging.WarnWithContext(logger, "provider error classified as silence by message text",
				"no_speech_keyword_match",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "adapter should report a structured no-speech code"),
				logging.String(logging.FieldImpact, "chunk recorded as silence"),
			)
		} else {
			logger.Debug("chunk contained no speech")
		}
		return result, nil
	}

	result.Text = strings.TrimSpace(out.Text)
	result.Language = strings.TrimSpace(out.Language)
	result.Confidence = out.Confidence
	return result, nil
}

// classifyNoSpeech reports whether err only means "nothing was said". The
// second return is true when the decision came from matching message text.
func classifyNoSpeech(err error) (noSpeech bool, fragile bool) {
	if err == nil {
		return false, false
	}
	if errors.Is(err, services.ErrNoSpeech) {
		return true, false
	}
	var coded NoSpeechError
	if errors.As(err, &coded) {
		return coded.NoSpeech(), false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, false
	}
	msg := strings.ToLower(err.Error())
	for _, phrase := range legacyNoSpeechPhrases {
		if strings.Contains(msg, phrase) {
			return true, true
		}
	}
	return false, false
}
