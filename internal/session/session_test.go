package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"scribe/internal/blobstore"
	"scribe/internal/chunk"
	"scribe/internal/reconcile"
	"scribe/internal/services"
	"scribe/internal/session"
	"scribe/internal/store"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
)

func newCoordinator(t *testing.T, stt chunk.SpeechToText, opts session.Options, options ...session.Option) (*session.Coordinator, *store.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if opts.ChunkTimeout == 0 {
		opts.ChunkTimeout = 200 * time.Millisecond
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = time.Millisecond
	}
	return session.New(stt, st, opts, options...), st
}

func audioChunk(seq int64, payload string) chunk.AudioChunk {
	return chunk.AudioChunk{
		Seq:         seq,
		Audio:       []byte(payload),
		MimeType:    "audio/webm",
		StartOffset: time.Duration(seq) * time.Second,
		Duration:    time.Second,
	}
}

func mustAppend(t *testing.T, s *session.Session, chunks ...chunk.AudioChunk) {
	t.Helper()
	for _, c := range chunks {
		if err := s.Append(context.Background(), c); err != nil {
			t.Fatalf("Append(%d): %v", c.Seq, err)
		}
	}
}

func TestFinalizeReordersOutOfOrderCompletions(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"], stt.Delays["c0"] = "Ola", 80*time.Millisecond
	stt.Texts["c1"], stt.Delays["c1"] = "mundo", 40*time.Millisecond
	stt.Texts["c2"] = "."

	coord, st := newCoordinator(t, stt, session.Options{Workers: 3})
	s, err := coord.Start(context.Background(), "standup")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"), audioChunk(1, "c1"), audioChunk(2, "c2"))

	res, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Version != 1 {
		t.Fatalf("expected version 1, got %d", res.Version)
	}
	if got := transcript.FullText(res.Segments); got != "Ola mundo." {
		t.Fatalf("unexpected text %q", got)
	}
	if !transcript.StartsNonDecreasing(res.Segments) {
		t.Fatalf("segment starts out of order: %+v", res.Segments)
	}
	if len(res.Speakers) != 1 || res.Speakers[0].ID != "S1" {
		t.Fatalf("unexpected speakers %+v", res.Speakers)
	}
	if res.Language != "pt" {
		t.Fatalf("expected detected language, got %q", res.Language)
	}
	if s.State() != session.StateClosed {
		t.Fatalf("expected closed session, got %s", s.State())
	}

	v, err := st.GetVersion(context.Background(), res.TranscriptionID, 1)
	if err != nil {
		t.Fatalf("GetVersion: %v", err)
	}
	if v.EditorID != transcript.EditorSystem || v.ChangesSummary != session.InitialSummary {
		t.Fatalf("unexpected version meta %+v", v.VersionMeta)
	}
	if v.Text != "Ola mundo." {
		t.Fatalf("unexpected stored text %q", v.Text)
	}
	tr, err := st.GetTranscription(context.Background(), res.TranscriptionID)
	if err != nil {
		t.Fatalf("GetTranscription: %v", err)
	}
	if tr.CurrentVersion != 1 || tr.Language != "pt" {
		t.Fatalf("unexpected transcription %+v", tr)
	}
}

func TestFinalizeWithPermanentlyFailingChunk(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"] = "first"
	stt.Errors["c1"] = errors.New("upstream 503")
	stt.Texts["c2"] = "third"

	coord, _ := newCoordinator(t, stt, session.Options{Workers: 2, ProviderRetries: 2})
	s, err := coord.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"), audioChunk(1, "c1"), audioChunk(2, "c2"))

	res, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if got := transcript.FullText(res.Segments); got != "first third" {
		t.Fatalf("unexpected text %q", got)
	}
	if res.Placeholders != 1 {
		t.Fatalf("expected one placeholder, got %d", res.Placeholders)
	}
	if res.Version != 1 {
		t.Fatalf("expected version 1, got %d", res.Version)
	}
	// One initial attempt plus two retries for c1.
	if stt.Calls() != 5 {
		t.Fatalf("expected 5 provider calls, got %d", stt.Calls())
	}
}

func TestEmptyChunkBecomesPlaceholderWithoutProviderCall(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"] = "hello"
	stt.Texts["c2"] = "world"

	coord, _ := newCoordinator(t, stt, session.Options{Workers: 1})
	s, err := coord.Start(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"), chunk.AudioChunk{Seq: 1, StartOffset: time.Second, Duration: time.Second}, audioChunk(2, "c2"))

	res, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if stt.Calls() != 2 {
		t.Fatalf("expected empty chunk to skip the provider, got %d calls", stt.Calls())
	}
	if res.Placeholders != 1 || transcript.FullText(res.Segments) != "hello world" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestAbortCommitsNothing(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"] = "discard me"
	stt.Delays["c1"] = 5 * time.Second

	coord, st := newCoordinator(t, stt, session.Options{Workers: 2})
	s, err := coord.Start(context.Background(), "aborted")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"), audioChunk(1, "c1"))

	start := time.Now()
	if err := s.Abort(); err != nil {
		t.Fatalf("Abort: %v", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("abort waited on the slow provider")
	}
	if len(s.Snapshot()) != 0 {
		t.Fatalf("expected snapshot to be discarded")
	}

	tr, err := st.GetTranscription(context.Background(), s.TranscriptionID())
	if err != nil {
		t.Fatalf("GetTranscription: %v", err)
	}
	if tr.CurrentVersion != 0 {
		t.Fatalf("expected no committed version, got %d", tr.CurrentVersion)
	}
	versions, err := st.ListVersions(context.Background(), s.TranscriptionID())
	if err != nil {
		t.Fatalf("ListVersions: %v", err)
	}
	if len(versions) != 0 {
		t.Fatalf("expected no versions, got %d", len(versions))
	}

	if err := s.Append(context.Background(), audioChunk(2, "c2")); !errors.Is(err, services.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed on append, got %v", err)
	}
	if _, err := s.Finalize(context.Background()); !errors.Is(err, services.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed on finalize, got %v", err)
	}
	if err := s.Abort(); !errors.Is(err, services.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed on second abort, got %v", err)
	}
}

func TestAppendValidatesSequence(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	coord, _ := newCoordinator(t, stt, session.Options{Workers: 1})
	s, err := coord.Start(context.Background(), "seq")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer func() { _ = s.Abort() }()

	mustAppend(t, s, audioChunk(3, "a"))
	for _, seq := range []int64{3, 2, -1} {
		if err := s.Append(context.Background(), audioChunk(seq, "b")); !errors.Is(err, services.ErrValidation) {
			t.Fatalf("seq %d: expected ErrValidation, got %v", seq, err)
		}
	}
	mustAppend(t, s, audioChunk(7, "gap is fine"))
}

func TestSecondFinalizeIsRejected(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"] = "only"
	coord, _ := newCoordinator(t, stt, session.Options{})
	s, err := coord.Start(context.Background(), "twice")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"))
	if _, err := s.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if _, err := s.Finalize(context.Background()); !errors.Is(err, services.ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestFinalizeAppliesCorrection(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"] = "ola tudo bem"
	stt.Texts["c1"] = "como vai voce"
	completion := &testsupport.Completion{
		Reply:  func(_, _ string) (string, error) { return "Olá, tudo bem? Como vai você?", nil },
		Tokens: 42,
	}
	corrector := reconcile.NewCorrector(completion, reconcile.CorrectorOptions{}, nil)

	coord, _ := newCoordinator(t, stt, session.Options{Workers: 2}, session.WithCorrector(corrector))
	s, err := coord.Start(context.Background(), "corrected")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	c1 := audioChunk(1, "c1")
	c1.Label = "S2"
	mustAppend(t, s, audioChunk(0, "c0"), c1)

	res, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !res.Corrected || res.TokensUsed != 42 {
		t.Fatalf("expected correction to apply, got %+v", res)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected one segment per speaker, got %+v", res.Segments)
	}
	if res.Segments[0].Text != "Olá, tudo bem?" || res.Segments[1].Text != "Como vai você?" {
		t.Fatalf("unexpected corrected segments %+v", res.Segments)
	}
	if res.Segments[1].SpeakerID != "S2" {
		t.Fatalf("expected speaker to survive correction, got %q", res.Segments[1].SpeakerID)
	}
}

func TestFinalizeDegradesWhenCorrectionFails(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["c0"] = "this text stays exactly as captured"
	completion := &testsupport.Completion{
		Reply: func(_, _ string) (string, error) { return "", errors.New("llm down") },
	}
	corrector := reconcile.NewCorrector(completion, reconcile.CorrectorOptions{}, nil)

	coord, _ := newCoordinator(t, stt, session.Options{}, session.WithCorrector(corrector))
	s, err := coord.Start(context.Background(), "degraded")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"))

	res, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Corrected || res.Version != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := transcript.FullText(res.Segments); got != "this text stays exactly as captured" {
		t.Fatalf("expected uncorrected text, got %q", got)
	}
}

func TestSnapshotShowsTimedOutHeadAndFinalizeCancelsProviders(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Delays["slow"] = 10 * time.Second
	stt.Texts["fast"] = "later words"

	coord, _ := newCoordinator(t, stt, session.Options{Workers: 2, ChunkTimeout: 50 * time.Millisecond})
	s, err := coord.Start(context.Background(), "timeout")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "slow"), audioChunk(1, "fast"))

	deadline := time.Now().Add(3 * time.Second)
	for {
		if strings.Contains(transcript.FullText(s.Snapshot()), "later words") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("later chunk never emitted past the stalled head")
		}
		time.Sleep(10 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	res, err := s.Finalize(ctx)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if res.Version != 1 || res.Placeholders != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := transcript.FullText(res.Segments); got != "later words" {
		t.Fatalf("unexpected text %q", got)
	}
}

func TestFinalizeDoesNotWaitOnStalledProvider(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.IgnoreCancel = true
	stt.Texts["c0"] = "first"
	stt.Texts["hang"], stt.Delays["hang"] = "never seen", 6*time.Second
	stt.Texts["c2"] = "third"

	coord, _ := newCoordinator(t, stt, session.Options{Workers: 3, ChunkTimeout: 100 * time.Millisecond})
	s, err := coord.Start(context.Background(), "stalled")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "c0"), audioChunk(1, "hang"), audioChunk(2, "c2"))

	began := time.Now()
	res, err := s.Finalize(context.Background())
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if elapsed := time.Since(began); elapsed > 2*time.Second {
		t.Fatalf("Finalize took %v waiting on a stalled provider", elapsed)
	}
	if res.Version != 1 || res.Placeholders != 1 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := transcript.FullText(res.Segments); got != "first third" {
		t.Fatalf("unexpected text %q", got)
	}
	if s.State() != session.StateClosed {
		t.Fatalf("expected closed session, got %s", s.State())
	}
}

func TestBlobStoreKeepsSessionAudio(t *testing.T) {
	stt := testsupport.NewSpeechToText()
	stt.Texts["ab"] = "one"
	stt.Texts["cd"] = "two"
	blobs := blobstore.New(t.TempDir())

	coord, st := newCoordinator(t, stt, session.Options{}, session.WithBlobStore(blobs))
	s, err := coord.Start(context.Background(), "audio")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	mustAppend(t, s, audioChunk(0, "ab"), audioChunk(1, "cd"))
	if _, err := s.Finalize(context.Background()); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	tr, err := st.GetTranscription(context.Background(), s.TranscriptionID())
	if err != nil {
		t.Fatalf("GetTranscription: %v", err)
	}
	if tr.AudioKey != tr.ID {
		t.Fatalf("expected audio key %q, got %q", tr.ID, tr.AudioKey)
	}
	rc, path, err := blobs.Open(tr.AudioKey)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rc.Close()
	if !strings.HasSuffix(path, ".webm") {
		t.Fatalf("expected webm blob, got %s", path)
	}
	buf := make([]byte, 8)
	n, _ := rc.Read(buf)
	if string(buf[:n]) != "abcd" {
		t.Fatalf("expected concatenated audio, got %q", buf[:n])
	}
}

func TestStartWithoutStore(t *testing.T) {
	coord := session.New(testsupport.NewSpeechToText(), nil, session.Options{})
	if _, err := coord.Start(context.Background(), "x"); !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
