package openaistt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"scribe/internal/chunk"
	"scribe/internal/language"
	"scribe/internal/services"
)

const (
	component             = "openai_stt"
	defaultTimeout        = 60 * time.Second
	defaultNoSpeechCutoff = 0.8
)

// Provider error codes that only mean the chunk held nothing to transcribe.
var noSpeechCodes = map[string]struct{}{
	"audio_too_short": {},
	"empty_file":      {},
	"no_speech":       {},
}

// Config captures the runtime settings for the transcription endpoint.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Language pins the spoken language; empty means auto-detect.
	Language          string
	TimeoutSeconds    int
	NoSpeechThreshold float64
}

// Client transcribes audio chunks through go-openai.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New constructs a Client. An empty model falls back to whisper-1.
func New(cfg Config, opts ...Option) *Client {
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = openai.Whisper1
	}
	if cfg.NoSpeechThreshold <= 0 {
		cfg.NoSpeechThreshold = defaultNoSpeechCutoff
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}}
	for _, opt := range opts {
		opt(c)
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"); base != "" {
		apiCfg.BaseURL = base
	}
	apiCfg.HTTPClient = c.httpClient
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Model returns the configured transcription model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Transcribe implements chunk.SpeechToText.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeHint string) (chunk.Transcription, error) {
	if len(audio) == 0 {
		return chunk.Transcription{}, services.Wrap(services.ErrEmptyChunk, component, "transcribe", "audio is empty", nil)
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return chunk.Transcription{}, services.Wrap(services.ErrConfiguration, component, "transcribe", "api key required", nil)
	}
	req := openai.AudioRequest{
		Model:    c.cfg.Model,
		Reader:   bytes.NewReader(audio),
		FilePath: "chunk" + chunk.Extension(mimeHint),
		Language: language.ToISO2(c.cfg.Language),
		Format:   openai.AudioResponseFormatVerboseJSON,
	}
	resp, err := c.api.CreateTranscription(ctx, req)
	if err != nil {
		return chunk.Transcription{}, classify(err)
	}
	return c.toTranscription(resp), nil
}

func (c *Client) toTranscription(resp openai.AudioResponse) chunk.Transcription {
	out := chunk.Transcription{Language: language.ToISO2(resp.Language)}
	if len(resp.Segments) == 0 {
		out.Text = strings.TrimSpace(resp.Text)
		return out
	}
	var (
		parts    []string
		logprobs float64
		kept     int
	)
	for _, seg := range resp.Segments {
		if seg.NoSpeechProb > c.cfg.NoSpeechThreshold {
			continue
		}
		if text := strings.TrimSpace(seg.Text); text != "" {
			parts = append(parts, text)
		}
		logprobs += seg.AvgLogprob
		kept++
	}
	out.Text = strings.Join(parts, " ")
	if kept > 0 {
		confidence := math.Exp(logprobs / float64(kept))
		confidence = math.Max(0, math.Min(1, confidence))
		out.Confidence = &confidence
	}
	return out
}

func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		code := strings.ToLower(fmt.Sprint(apiErr.Code))
		if _, ok := noSpeechCodes[code]; ok {
			return services.Wrap(services.ErrNoSpeech, component, "transcribe", code, err)
		}
		switch apiErr.HTTPStatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return services.Wrap(services.ErrConfiguration, component, "transcribe", "credentials rejected", err)
		}
		return services.Wrap(services.ErrProviderFailure, component, "transcribe", fmt.Sprintf("status %d", apiErr.HTTPStatusCode), err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return services.Wrap(services.ErrProviderFailure, component, "transcribe", "request failed", err)
}

// HealthCheck lists models to confirm the endpoint is reachable and the key
// is accepted. It does not spend transcription credit.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return services.Wrap(services.ErrConfiguration, component, "health", "api key required", nil)
	}
	if _, err := c.api.ListModels(ctx); err != nil {
		return classify(err)
	}
	return nil
}
