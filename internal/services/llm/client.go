package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1"
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryAttempts  = 5
	defaultRetryBaseDelay = time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer and Title become OpenRouter's HTTP-Referer and X-Title headers.
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client is a chat completion client for any OpenAI-compatible endpoint.
type Client struct {
	cfg        Config
	api        *openai.Client
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client requests go through.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts caps the number of attempts per completion.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) { c.retryMaxAttempts = attempts }
}

// WithRetryBackoff overrides the exponential backoff bounds.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper replaces the context-aware sleep between attempts (tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) { c.sleeper = sleeper }
}

// NewClient constructs a client. A base URL that still names the
// /chat/completions endpoint is trimmed back to the API root.
func NewClient(cfg Config, opts ...Option) *Client {
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)
	cfg.Model = strings.TrimSpace(cfg.Model)
	cfg.Referer = strings.TrimSpace(cfg.Referer)
	cfg.Title = strings.TrimSpace(cfg.Title)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/chat/completions")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}

	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		cfg:              cfg,
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	apiCfg.HTTPClient = &hintingDoer{client: c.httpClient, referer: cfg.Referer, title: cfg.Title}
	c.api = openai.NewClientWithConfig(apiCfg)
	return c
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.cfg.Model
}

// Complete sends a system prompt and user text and returns the reply along
// with the total tokens the provider reported (zero when usage is absent).
func (c *Client) Complete(ctx context.Context, systemPrompt, userText string, maxTokens int, temperature float64) (string, int, error) {
	systemPrompt = strings.TrimSpace(systemPrompt)
	userText = strings.TrimSpace(userText)
	switch {
	case systemPrompt == "":
		return "", 0, errors.New("llm complete: system prompt required")
	case userText == "":
		return "", 0, errors.New("llm complete: user text required")
	case c.cfg.APIKey == "":
		return "", 0, errors.New("llm complete: api key required")
	}
	req := c.request(systemPrompt, userText, maxTokens)
	req.Temperature = float32(temperature)
	return c.completeWithRetry(ctx, req, "llm complete")
}

// HealthCheck asks the model for a fixed JSON reply to confirm the key and
// model are usable.
func (c *Client) HealthCheck(ctx context.Context) error {
	if c.cfg.APIKey == "" {
		return errors.New("llm health: api key required")
	}
	req := c.request(`Reply with the JSON object {"ok":true} and nothing else.`, "ping", 16)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	content, _, err := c.completeWithRetry(ctx, req, "llm health")
	if err != nil {
		return err
	}
	var reply struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &reply); err != nil {
		return fmt.Errorf("llm health: %w", err)
	}
	if !reply.OK {
		return fmt.Errorf("llm health: unexpected reply %q", snippet(content))
	}
	return nil
}

func (c *Client) request(systemPrompt, userText string, maxTokens int) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userText},
		},
		MaxTokens: maxTokens,
	}
}

func (c *Client) completeWithRetry(ctx context.Context, req openai.ChatCompletionRequest, op string) (string, int, error) {
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		hint := &retryHint{}
		resp, err := c.api.CreateChatCompletion(withRetryHint(ctx, hint), req)
		if err == nil {
			var text string
			text, err = replyText(resp)
			if err == nil {
				return text, tokensUsed(resp.Usage), nil
			}
		}
		lastErr = err
		delay, retry := c.retryDelay(ctx, err, hint, attempt, attempts)
		if !retry {
			return "", 0, fmt.Errorf("%s: %w", op, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", 0, fmt.Errorf("%s: %w", op, err)
		}
	}
	return "", 0, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

// replyText pulls the first non-empty payload from the first choice. Some
// OpenRouter models answer through tool or function calls instead of content.
func replyText(resp openai.ChatCompletionResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", &emptyContentError{reason: "no choices"}
	}
	choice := resp.Choices[0]
	msg := choice.Message
	if text := strings.TrimSpace(msg.Content); text != "" {
		return text, nil
	}
	for _, part := range msg.MultiContent {
		if part.Type == openai.ChatMessagePartTypeText && strings.TrimSpace(part.Text) != "" {
			return strings.TrimSpace(part.Text), nil
		}
	}
	for _, call := range msg.ToolCalls {
		if args := strings.TrimSpace(call.Function.Arguments); args != "" {
			return args, nil
		}
	}
	if msg.FunctionCall != nil && strings.TrimSpace(msg.FunctionCall.Arguments) != "" {
		return strings.TrimSpace(msg.FunctionCall.Arguments), nil
	}
	if refusal := strings.TrimSpace(msg.Refusal); refusal != "" {
		return "", &refusalError{message: refusal}
	}
	return "", &emptyContentError{reason: "finish_reason=" + string(choice.FinishReason), model: resp.Model}
}

func tokensUsed(u openai.Usage) int {
	if u.TotalTokens > 0 {
		return u.TotalTokens
	}
	return u.PromptTokens + u.CompletionTokens
}

type emptyContentError struct {
	reason string
	model  string
}

func (e *emptyContentError) Error() string {
	msg := "empty content (" + e.reason
	if e.model != "" {
		msg += " model=" + e.model
	}
	return msg + ")"
}

type refusalError struct {
	message string
}

func (e *refusalError) Error() string {
	return "model refused: " + snippet(e.message)
}
