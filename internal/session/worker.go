package session

import (
	"context"
	"log/slog"
	"time"

	"scribe/internal/assembly"
	"scribe/internal/chunk"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// work pulls chunks until the job queue is closed. Each outcome is handed
// to the consumer; workers never touch the sequencer or assembler. Once the
// session is cancelled, queued chunks fail without a provider call.
func (s *Session) work(id int) {
	defer s.workers.Done()
	for c := range s.jobs {
		ev := event{kind: eventFail, seq: c.Seq}
		if s.ctx.Err() == nil {
			ev = s.process(id, c)
		}
		select {
		case s.events <- ev:
		case <-s.stop:
		}
		select {
		case s.progress <- struct{}{}:
		default:
		}
	}
}

func (s *Session) process(worker int, c chunk.AudioChunk) event {
	ctx := services.WithChunkSeq(s.ctx, c.Seq)
	logger := logging.WithContext(ctx, s.logger).With(logging.Int("worker", worker))

	label := s.classify(ctx, c, logger)
	res, err := s.transcribe(ctx, c, logger)
	if err != nil {
		if s.ctx.Err() == nil {
			logging.WarnWithContext(logger, "chunk transcription failed", "chunk_failed",
				logging.String(logging.FieldErrorKind, services.Kind(err)),
				logging.Error(err),
				logging.String(logging.FieldImpact, "chunk emitted as empty placeholder"),
			)
		}
		return event{kind: eventFail, seq: c.Seq}
	}
	res.Label = label.String()
	return event{kind: eventDeliver, seq: c.Seq, result: res}
}

func (s *Session) classify(ctx context.Context, c chunk.AudioChunk, logger *slog.Logger) assembly.Label {
	label, err := s.c.diarizer.Classify(ctx, c)
	if err == nil {
		return label
	}
	logger.Warn("diarizer failed; using capture label",
		logging.String(logging.FieldEventType, "diarize_failed"),
		logging.Error(err),
	)
	fallback, _ := assembly.MarkerDiarizer{Default: assembly.DefaultSpeaker}.Classify(ctx, c)
	return fallback
}

// transcribe retries ProviderFailure with exponential backoff. Every other
// outcome is final.
func (s *Session) transcribe(ctx context.Context, c chunk.AudioChunk, logger *slog.Logger) (chunk.Result, error) {
	backoff := s.c.opts.RetryBackoff
	for attempt := 0; ; attempt++ {
		res, err := s.c.transcriber.Transcribe(ctx, c)
		if err == nil || !services.Retryable(err) || attempt >= s.c.opts.ProviderRetries {
			return res, err
		}
		delay := backoff << attempt
		logger.Debug("retrying chunk transcription",
			logging.Int("attempt", attempt+1),
			logging.Duration("delay", delay),
			logging.Error(err),
		)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return res, ctx.Err()
		case <-timer.C:
		}
	}
}
