package session

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"scribe/internal/assembly"
	"scribe/internal/blobstore"
	"scribe/internal/chunk"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/reconcile"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// InitialSummary is the change summary recorded on a session's first version.
const InitialSummary = "initial transcription"

const (
	defaultWorkers      = 4
	defaultChunkTimeout = 15 * time.Second
	defaultRetryBackoff = 500 * time.Millisecond
)

// Store is the persistence a session needs.
type Store interface {
	CreateTranscription(ctx context.Context, title, language string) (*transcript.Transcription, error)
	Commit(ctx context.Context, id string, segments []transcript.Segment, editorID, changesSummary string) (int, error)
	SetAudioKey(ctx context.Context, id, key string) error
	SetLanguage(ctx context.Context, id, language string) error
}

// Options bounds the work a session does.
type Options struct {
	// Workers caps concurrent provider calls per session.
	Workers int
	// ChunkTimeout is how long a missing chunk may hold back later ones
	// before a placeholder is emitted.
	ChunkTimeout       time.Duration
	MaxSegmentDuration time.Duration
	// ProviderRetries is the number of extra attempts after a ProviderFailure.
	ProviderRetries int
	RetryBackoff    time.Duration
	// QueueSize bounds chunks waiting for a worker. Zero uses Workers*4.
	QueueSize int
}

// OptionsFromConfig maps the [pipeline] section onto Options.
func OptionsFromConfig(cfg *config.Config) Options {
	if cfg == nil {
		return Options{}
	}
	return Options{
		Workers:            cfg.Pipeline.Workers,
		ChunkTimeout:       cfg.ChunkTimeout(),
		MaxSegmentDuration: cfg.MaxSegmentDuration(),
		ProviderRetries:    cfg.Pipeline.ProviderRetries,
	}
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = defaultWorkers
	}
	if o.ChunkTimeout <= 0 {
		o.ChunkTimeout = defaultChunkTimeout
	}
	if o.ProviderRetries < 0 {
		o.ProviderRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = defaultRetryBackoff
	}
	if o.QueueSize <= 0 {
		o.QueueSize = o.Workers * 4
	}
	return o
}

// Coordinator creates sessions wired to injected capabilities.
type Coordinator struct {
	transcriber *chunk.Transcriber
	diarizer    assembly.Diarizer
	corrector   *reconcile.Corrector
	store       Store
	blobs       *blobstore.Store
	logger      *slog.Logger
	opts        Options
}

// Option customizes a Coordinator.
type Option func(*Coordinator)

// WithDiarizer replaces the default MarkerDiarizer.
func WithDiarizer(d assembly.Diarizer) Option {
	return func(c *Coordinator) {
		if d != nil {
			c.diarizer = d
		}
	}
}

// WithCorrector enables the punctuation pass at finalize.
func WithCorrector(corrector *reconcile.Corrector) Option {
	return func(c *Coordinator) {
		c.corrector = corrector
	}
}

// WithBlobStore keeps the original audio for re-listening.
func WithBlobStore(blobs *blobstore.Store) Option {
	return func(c *Coordinator) {
		c.blobs = blobs
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logging.NewComponentLogger(logger, "session")
	}
}

// New builds a Coordinator.
func New(stt chunk.SpeechToText, store Store, opts Options, options ...Option) *Coordinator {
	c := &Coordinator{
		diarizer: assembly.MarkerDiarizer{Default: assembly.DefaultSpeaker},
		store:    store,
		logger:   logging.NewComponentLogger(nil, "session"),
		opts:     opts.withDefaults(),
	}
	for _, opt := range options {
		opt(c)
	}
	c.transcriber = chunk.NewTranscriber(stt, c.logger)
	return c
}

// Start creates the transcription record and opens a session for it.
func (c *Coordinator) Start(ctx context.Context, title string) (*Session, error) {
	if c == nil || c.store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "session", "start", "store not configured", nil)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Recording " + time.Now().Format("2006-01-02 15:04")
	}
	tr, err := c.store.CreateTranscription(ctx, title, "")
	if err != nil {
		return nil, err
	}
	s := newSession(c, uuid.NewString(), tr)
	s.logger.Info("session opened",
		logging.String(logging.FieldEventType, "session_opened"),
		logging.String("title", tr.Title),
		logging.Int("workers", c.opts.Workers),
		logging.Duration("chunk_timeout", c.opts.ChunkTimeout),
	)
	return s, nil
}
