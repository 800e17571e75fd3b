package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"scribe/internal/assembly"
	"scribe/internal/chunk"
	"scribe/internal/language"
	"scribe/internal/logging"
	"scribe/internal/reconcile"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Session is one live recording. Append, Finalize, Abort, State, and
// Snapshot are safe to call from any goroutine.
type Session struct {
	id              string
	transcriptionID string
	title           string
	c               *Coordinator
	logger          *slog.Logger

	// ctx scopes every provider call; Abort cancels it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	state    State
	lastSeq  int64
	started  bool
	audioExt string

	jobs     chan chunk.AudioChunk
	events   chan event
	progress chan struct{}
	workers  sync.WaitGroup
	// stop ends the consumer; events is never closed so late workers
	// cannot panic on send.
	stop chan struct{}
	done chan struct{}

	// Owned by the consumer goroutine until done is closed.
	seq       *chunk.Sequencer
	asm       *assembly.Assembler
	languages []string

	snapMu sync.RWMutex
	snap   []transcript.Segment
}

// FinalizeResult reports what Finalize committed.
type FinalizeResult struct {
	SessionID       string
	TranscriptionID string
	Version         int
	Language        string
	Segments        []transcript.Segment
	Speakers        []transcript.SpeakerInfo
	TokensUsed      int
	Placeholders    int
	Corrected       bool
}

func newSession(c *Coordinator, sessionID string, tr *transcript.Transcription) *Session {
	base := services.WithTranscriptionID(services.WithSessionID(context.Background(), sessionID), tr.ID)
	ctx, cancel := context.WithCancel(base)
	s := &Session{
		id:              sessionID,
		transcriptionID: tr.ID,
		title:           tr.Title,
		c:               c,
		logger:          logging.WithContext(base, c.logger),
		ctx:             ctx,
		cancel:          cancel,
		state:           StateOpen,
		jobs:            make(chan chunk.AudioChunk, c.opts.QueueSize),
		events:          make(chan event, c.opts.QueueSize*2),
		progress:        make(chan struct{}, 1),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
		asm: assembly.NewAssembler(c.opts.MaxSegmentDuration,
			assembly.WithLogger(c.logger)),
	}
	for i := 0; i < c.opts.Workers; i++ {
		s.workers.Add(1)
		go s.work(i + 1)
	}
	go s.consume()
	return s
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// Title returns the transcription title, including a generated default.
func (s *Session) Title() string { return s.title }

// TranscriptionID returns the record the session commits to.
func (s *Session) TranscriptionID() string { return s.transcriptionID }

// State reports the lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the segments assembled so far in capture order.
func (s *Session) Snapshot() []transcript.Segment {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return transcript.CloneSegments(s.snap)
}

// Append hands a captured chunk to the session. Sequence numbers must be
// strictly increasing; gaps are allowed.
func (s *Session) Append(ctx context.Context, c chunk.AudioChunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateOpen {
		return services.Wrap(services.ErrSessionClosed, "session", "append",
			fmt.Sprintf("session is %s", s.state), nil)
	}
	if c.Seq < 0 {
		return services.Wrap(services.ErrValidation, "session", "append",
			fmt.Sprintf("negative sequence number %d", c.Seq), nil)
	}
	if s.started && c.Seq <= s.lastSeq {
		return services.Wrap(services.ErrValidation, "session", "append",
			fmt.Sprintf("sequence %d is not after %d", c.Seq, s.lastSeq), nil)
	}
	s.started = true
	s.lastSeq = c.Seq
	s.keepAudio(ctx, c)

	s.events <- event{kind: eventExpect, seq: c.Seq, start: c.StartOffset, end: c.End()}
	select {
	case s.jobs <- c:
		return nil
	case <-ctx.Done():
		s.events <- event{kind: eventFail, seq: c.Seq}
		return ctx.Err()
	}
}

// keepAudio appends the chunk to the session's audio blob. Failures only
// cost the re-listen copy, so they are logged and swallowed.
func (s *Session) keepAudio(ctx context.Context, c chunk.AudioChunk) {
	if s.c.blobs == nil || len(c.Audio) == 0 {
		return
	}
	first := s.audioExt == ""
	if first {
		s.audioExt = chunk.Extension(c.MimeType)
	}
	if _, err := s.c.blobs.Append(s.transcriptionID, s.audioExt, c.Audio); err != nil {
		logging.WarnWithContext(s.logger, "audio blob append failed", "audio_blob_failed",
			logging.Int64(logging.FieldChunkSeq, c.Seq),
			logging.Error(err),
			logging.String(logging.FieldImpact, "original audio incomplete for re-listening"),
		)
		return
	}
	if first {
		if err := s.c.store.SetAudioKey(ctx, s.transcriptionID, s.transcriptionID); err != nil {
			logging.WarnWithContext(s.logger, "audio key not recorded", "audio_key_failed",
				logging.Error(err),
			)
		}
	}
}

// Finalize stops intake, waits for outstanding chunks, reconciles the
// assembled text once, and commits version 1. Cancelling ctx stops waiting
// on providers; unresolved chunks become placeholders and the commit still
// runs. A failed commit is returned together with the assembled result.
func (s *Session) Finalize(ctx context.Context) (*FinalizeResult, error) {
	s.mu.Lock()
	if s.state != StateOpen {
		state := s.state
		s.mu.Unlock()
		return nil, services.Wrap(services.ErrSessionClosed, "session", "finalize",
			fmt.Sprintf("session is %s", state), nil)
	}
	s.state = StateFinalizing
	close(s.jobs)
	s.mu.Unlock()
	defer s.setState(StateClosed)
	defer s.cancel()

	s.drain(ctx)

	result := &FinalizeResult{
		SessionID:       s.id,
		TranscriptionID: s.transcriptionID,
		Segments:        s.asm.Segments(),
		Speakers:        s.asm.Speakers(),
		Language:        language.Dominant(s.languages),
	}
	if s.seq != nil {
		_, result.Placeholders, _ = s.seq.Stats()
	}

	commitCtx := context.WithoutCancel(ctx)
	result.Segments, result.TokensUsed, result.Corrected = s.reconcile(commitCtx, result.Segments)
	s.publish(result.Segments)

	version, err := s.c.store.Commit(commitCtx, s.transcriptionID, result.Segments, transcript.EditorSystem, InitialSummary)
	if err != nil {
		s.logger.Error("initial version commit failed",
			logging.String(logging.FieldEventType, "session_commit_failed"),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
		)
		return result, err
	}
	result.Version = version

	if result.Language != "" {
		if err := s.c.store.SetLanguage(commitCtx, s.transcriptionID, result.Language); err != nil {
			logging.WarnWithContext(s.logger, "language not recorded", "language_update_failed",
				logging.Error(err),
			)
		}
	}

	s.logger.Info("session finalized",
		logging.String(logging.FieldEventType, "session_finalized"),
		logging.Int(logging.FieldVersion, version),
		logging.Int("segments", len(result.Segments)),
		logging.Int("speakers", len(result.Speakers)),
		logging.Int("placeholders", result.Placeholders),
		logging.Int("tokens_used", result.TokensUsed),
		logging.Bool("corrected", result.Corrected),
	)
	return result, nil
}

// Abort discards buffered results and closes the session without
// committing anything.
func (s *Session) Abort() error {
	s.mu.Lock()
	if s.state != StateOpen {
		state := s.state
		s.mu.Unlock()
		return services.Wrap(services.ErrSessionClosed, "session", "abort",
			fmt.Sprintf("session is %s", state), nil)
	}
	s.state = StateClosed
	close(s.jobs)
	s.mu.Unlock()

	s.cancel()
	close(s.stop)
	<-s.done
	s.publish(nil)

	s.logger.Info("session aborted", logging.String(logging.FieldEventType, "session_aborted"))
	return nil
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// drain waits for the workers, then lets the consumer flush the sequencer
// and exit. The wait is bounded: if no chunk resolves within ChunkTimeout,
// or ctx ends, in-flight calls are cancelled and abandoned so outstanding
// chunks become placeholders even when a provider ignores cancellation.
func (s *Session) drain(ctx context.Context) {
	idle := make(chan struct{})
	go func() {
		s.workers.Wait()
		close(idle)
	}()

	bound := time.NewTimer(s.c.opts.ChunkTimeout)
	defer bound.Stop()

wait:
	for {
		select {
		case <-idle:
			break wait
		case <-s.progress:
			bound.Reset(s.c.opts.ChunkTimeout)
		case <-bound.C:
			logging.WarnWithContext(s.logger, "finalize gave up on stalled providers", "finalize_timeout",
				logging.Duration("chunk_timeout", s.c.opts.ChunkTimeout),
				logging.String(logging.FieldImpact, "outstanding chunks become empty placeholders"),
			)
			s.cancel()
			break wait
		case <-ctx.Done():
			logging.WarnWithContext(s.logger, "finalize stopped waiting for providers", "finalize_cancelled",
				logging.String(logging.FieldImpact, "outstanding chunks become empty placeholders"),
			)
			s.cancel()
			break wait
		}
	}
	close(s.stop)
	<-s.done
}

// reconcile runs the punctuation pass. Any failure keeps the assembled
// segments as they are.
func (s *Session) reconcile(ctx context.Context, segments []transcript.Segment) ([]transcript.Segment, int, bool) {
	if s.c.corrector == nil {
		return segments, 0, false
	}
	text := transcript.FullText(segments)
	corrected, tokens, err := s.c.corrector.Correct(ctx, text)
	switch {
	case errors.Is(err, services.ErrTextTooShort):
		s.logger.Debug("reconciliation skipped", logging.Int("chars", len([]rune(text))))
		return segments, 0, false
	case err != nil:
		logging.WarnWithContext(s.logger, "reconciliation failed; keeping uncorrected text", "reconcile_degraded",
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Error(err),
			logging.String(logging.FieldImpact, "transcript committed without punctuation pass"),
		)
		return segments, tokens, false
	}
	if corrected == text {
		return segments, tokens, false
	}
	out, ok := reconcile.ApplyToSegments(segments, corrected)
	if !ok {
		logging.WarnWithContext(s.logger, "corrected text does not align with segments", "reconcile_misaligned",
			logging.String(logging.FieldImpact, "transcript committed without punctuation pass"),
		)
		return segments, tokens, false
	}
	return out, tokens, true
}

func (s *Session) publish(segments []transcript.Segment) {
	s.snapMu.Lock()
	s.snap = segments
	s.snapMu.Unlock()
}
