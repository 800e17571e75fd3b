package main

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"scribe/internal/api"
	"scribe/internal/blobstore"
	"scribe/internal/chunk"
	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/notifications"
	"scribe/internal/reconcile"
	"scribe/internal/services"
	"scribe/internal/services/llm"
	"scribe/internal/services/openaistt"
	"scribe/internal/services/whisperx"
	"scribe/internal/store"
)

// Swapped by tests to avoid real providers.
var (
	newSpeechToText   = buildSpeechToText
	newTextCompletion = buildTextCompletion
)

type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		jsonFlag:   jsonFlag,
	}
}

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, _, _, err := config.Load(c.configPath())
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) jsonOutput() bool {
	return c.jsonFlag != nil && *c.jsonFlag
}

func (c *commandContext) log() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.configValue())
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) withStore(fn func(*store.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	st, err := store.Open(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

func (c *commandContext) withService(fn func(*api.Service) error) error {
	return c.withStore(func(st *store.Store) error {
		return fn(c.newService(st))
	})
}

func (c *commandContext) blobStore() *blobstore.Store {
	cfg := c.configValue()
	if cfg == nil {
		return nil
	}
	return blobstore.New(cfg.Paths.AudioDir)
}

// newService builds the edit/history/derive facade. The deriver is left nil
// when no LLM key is configured so read-only commands keep working.
func (c *commandContext) newService(st *store.Store) *api.Service {
	cfg := c.configValue()
	logger := c.log()

	var deriver *reconcile.Deriver
	model := ""
	if cfg.RequireLLMCredentials() == nil {
		completion, name := newTextCompletion(cfg)
		deriver = reconcile.NewDeriver(completion, cfg.Pipeline.MinCorrectionChars, cfg.Pipeline.DeriveMaxTokens, logger)
		model = name
	}
	return api.NewService(st, deriver,
		api.WithBlobStore(c.blobStore()),
		api.WithModel(model),
		api.WithLogger(logger),
	)
}

// corrector returns nil when correction is disabled or unconfigured.
func (c *commandContext) corrector() *reconcile.Corrector {
	cfg := c.configValue()
	if cfg == nil || !cfg.Pipeline.Correct || cfg.RequireLLMCredentials() != nil {
		return nil
	}
	completion, _ := newTextCompletion(cfg)
	return reconcile.NewCorrector(completion, reconcile.CorrectorOptions{
		MinChars:       cfg.Pipeline.MinCorrectionChars,
		MaxTokens:      cfg.Pipeline.CorrectionMaxTokens,
		StrictFidelity: cfg.Pipeline.StrictFidelity,
	}, c.log())
}

// notify publishes an event and only logs delivery failures.
func (c *commandContext) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	if err := notifications.NewService(c.configValue()).Publish(ctx, event, payload); err != nil {
		logging.WarnWithContext(c.log(), "notification failed", "notification_failed",
			logging.String("event", string(event)),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
			logging.Error(err),
		)
	}
}

func buildTextCompletion(cfg *config.Config) (reconcile.TextCompletion, string) {
	llmCfg := cfg.GetLLM()
	client := llm.NewClient(llm.Config{
		APIKey:         llmCfg.APIKey,
		BaseURL:        llmCfg.BaseURL,
		Model:          llmCfg.Model,
		Referer:        llmCfg.Referer,
		Title:          llmCfg.Title,
		TimeoutSeconds: llmCfg.TimeoutSeconds,
	})
	return client, client.Model()
}

func buildSpeechToText(cfg *config.Config) (chunk.SpeechToText, error) {
	if err := cfg.RequireSpeechCredentials(); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "cli", "speech provider", "missing credentials", err)
	}
	switch cfg.Speech.Provider {
	case config.ProviderWhisperX:
		svc := whisperx.NewService(whisperx.Config{
			Model:       cfg.Speech.WhisperXModel,
			CUDAEnabled: cfg.Speech.WhisperXCUDAEnabled,
			VADMethod:   cfg.Speech.WhisperXVADMethod,
			HFToken:     cfg.Speech.WhisperXHuggingFace,
			Language:    cfg.Speech.Language,
		})
		return svc, nil
	case config.ProviderOpenAI:
		return openaistt.New(openaistt.Config{
			APIKey:            cfg.Speech.APIKey,
			BaseURL:           cfg.Speech.BaseURL,
			Model:             cfg.Speech.Model,
			Language:          cfg.Speech.Language,
			TimeoutSeconds:    cfg.Speech.TimeoutSeconds,
			NoSpeechThreshold: cfg.Speech.NoSpeechThreshold,
		}), nil
	default:
		return nil, errors.New("unknown speech provider " + cfg.Speech.Provider)
	}
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
