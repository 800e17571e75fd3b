package api

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"scribe/internal/blobstore"
	"scribe/internal/logging"
	"scribe/internal/reconcile"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Store is the persistence the service reads and writes.
type Store interface {
	GetTranscription(ctx context.Context, id string) (*transcript.Transcription, error)
	ListTranscriptions(ctx context.Context) ([]transcript.Transcription, error)
	DeleteTranscription(ctx context.Context, id string) error
	Commit(ctx context.Context, id string, segments []transcript.Segment, editorID, changesSummary string) (int, error)
	GetVersion(ctx context.Context, id string, number int) (*transcript.Version, error)
	Versions(ctx context.Context, id string) iter.Seq2[transcript.VersionMeta, error]
	SetAudioKey(ctx context.Context, id, key string) error
	AddDerived(ctx context.Context, id string, sourceVersion int, payload transcript.Insights, tokensUsed int, model string) (*transcript.DerivedContent, error)
	GetDerived(ctx context.Context, id, derivedID string) (*transcript.DerivedContent, error)
	ListDerived(ctx context.Context, id string) ([]transcript.DerivedContent, error)
	RemoveDerived(ctx context.Context, id, derivedID string) error
}

// Service implements editing, history, and derivation on top of Store.
type Service struct {
	store   Store
	deriver *reconcile.Deriver
	blobs   *blobstore.Store
	model   string
	logger  *slog.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithBlobStore enables the audio operations and lets Delete remove the
// original audio as well.
func WithBlobStore(blobs *blobstore.Store) Option {
	return func(s *Service) { s.blobs = blobs }
}

// WithModel records which model produced derived content.
func WithModel(model string) Option {
	return func(s *Service) { s.model = strings.TrimSpace(model) }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logging.NewComponentLogger(logger, "api") }
}

// NewService builds a Service. deriver may be nil when no LLM is configured;
// Derive then fails with ErrConfiguration.
func NewService(store Store, deriver *reconcile.Deriver, opts ...Option) *Service {
	s := &Service{
		store:   store,
		deriver: deriver,
		logger:  logging.NewComponentLogger(nil, "api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Show returns a transcription with its current view.
func (s *Service) Show(ctx context.Context, id string) (TranscriptionDTO, error) {
	t, err := s.store.GetTranscription(ctx, id)
	if err != nil {
		return TranscriptionDTO{}, err
	}
	return FromTranscription(*t), nil
}

// List returns every transcription, newest first.
func (s *Service) List(ctx context.Context) ([]TranscriptionDTO, error) {
	items, err := s.store.ListTranscriptions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TranscriptionDTO, 0, len(items))
	for _, t := range items {
		out = append(out, FromTranscription(t))
	}
	return out, nil
}

// Edit validates req and commits it as the next version.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (VersionMetaDTO, error) {
	if err := req.Validate(); err != nil {
		return VersionMetaDTO{}, err
	}
	segments := req.ToSegments()
	summary := req.ChangesSummary
	if summary == "" {
		summary = "manual edit"
	}
	number, err := s.store.Commit(ctx, id, segments, req.EditorID, summary)
	if err != nil {
		return VersionMetaDTO{}, err
	}
	v, err := s.store.GetVersion(ctx, id, number)
	if err != nil {
		return VersionMetaDTO{}, err
	}
	logging.WithContext(services.WithTranscriptionID(ctx, id), s.logger).Info("transcription edited",
		logging.String(logging.FieldEventType, "transcription_edited"),
		logging.Int(logging.FieldVersion, number),
		logging.String("editor", req.EditorID),
		logging.Int("segments", len(segments)),
	)
	return FromVersionMeta(v.VersionMeta), nil
}

// Versions lists version metadata, newest first.
func (s *Service) Versions(ctx context.Context, id string) ([]VersionMetaDTO, error) {
	out := make([]VersionMetaDTO, 0)
	for m, err := range s.store.Versions(ctx, id) {
		if err != nil {
			return nil, err
		}
		out = append(out, FromVersionMeta(m))
	}
	return out, nil
}

// Version returns one snapshot. Zero selects the current version.
func (s *Service) Version(ctx context.Context, id string, number int) (VersionDTO, error) {
	v, err := s.resolveVersion(ctx, id, number)
	if err != nil {
		return VersionDTO{}, err
	}
	return FromVersion(*v), nil
}

// Derive computes summary and insights for a version (zero = current) and
// stores them. Provider and parse failures are returned unchanged so the
// caller can decide whether to retry.
func (s *Service) Derive(ctx context.Context, id string, number int) (DerivedDTO, error) {
	if s.deriver == nil {
		return DerivedDTO{}, services.Wrap(services.ErrConfiguration, "api", "derive", "no text completion configured", nil)
	}
	v, err := s.resolveVersion(ctx, id, number)
	if err != nil {
		return DerivedDTO{}, err
	}
	ctx = services.WithTranscriptionID(ctx, id)
	logger := logging.WithContext(ctx, s.logger)

	insights, tokens, err := s.deriver.Derive(ctx, v.Text)
	if err != nil {
		logger.Warn("derivation failed",
			logging.String(logging.FieldEventType, "derive_failed"),
			logging.String(logging.FieldErrorKind, services.Kind(err)),
			logging.Int(logging.FieldVersion, v.Number),
			logging.Error(err),
		)
		return DerivedDTO{}, err
	}
	d, err := s.store.AddDerived(ctx, id, v.Number, insights, tokens, s.model)
	if err != nil {
		return DerivedDTO{}, err
	}
	logger.Info("derived content stored",
		logging.String(logging.FieldEventType, "derived_stored"),
		logging.Int(logging.FieldVersion, v.Number),
		logging.String("derived_id", d.ID),
		logging.Int("tokens_used", tokens),
	)
	return FromDerived(*d), nil
}

// Derived lists a transcription's derived artifacts.
func (s *Service) Derived(ctx context.Context, id string) ([]DerivedDTO, error) {
	items, err := s.store.ListDerived(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]DerivedDTO, 0, len(items))
	for _, d := range items {
		out = append(out, FromDerived(d))
	}
	return out, nil
}

// GetDerived returns one derived artifact.
func (s *Service) GetDerived(ctx context.Context, id, derivedID string) (DerivedDTO, error) {
	d, err := s.store.GetDerived(ctx, id, derivedID)
	if err != nil {
		return DerivedDTO{}, err
	}
	return FromDerived(*d), nil
}

// RemoveDerived deletes one derived artifact. Versions are untouched.
func (s *Service) RemoveDerived(ctx context.Context, id, derivedID string) error {
	return s.store.RemoveDerived(ctx, id, derivedID)
}

// Delete removes a transcription, its history, its derived content, and
// its stored audio.
func (s *Service) Delete(ctx context.Context, id string) error {
	t, err := s.store.GetTranscription(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTranscription(ctx, id); err != nil {
		return err
	}
	if s.blobs != nil && t.AudioKey != "" {
		if err := s.blobs.Delete(t.AudioKey); err != nil {
			logging.WarnWithContext(logging.WithContext(services.WithTranscriptionID(ctx, id), s.logger),
				"audio blob not removed", "audio_delete_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "orphaned audio file left in audio_dir"),
			)
		}
	}
	return nil
}

func (s *Service) resolveVersion(ctx context.Context, id string, number int) (*transcript.Version, error) {
	if number < 0 {
		return nil, services.Wrap(services.ErrValidation, "api", "version", fmt.Sprintf("invalid version %d", number), nil)
	}
	if number == 0 {
		t, err := s.store.GetTranscription(ctx, id)
		if err != nil {
			return nil, err
		}
		if t.CurrentVersion == 0 {
			return nil, services.Wrap(services.ErrNotFound, "api", "version", "transcription has no committed version", nil)
		}
		number = t.CurrentVersion
	}
	return s.store.GetVersion(ctx, id, number)
}
