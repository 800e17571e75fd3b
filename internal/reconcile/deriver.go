package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/services/llm"
	"scribe/internal/transcript"
)

// Deriver produces summary and insights from transcript text.
type Deriver struct {
	llm       TextCompletion
	minChars  int
	maxTokens int
	logger    *slog.Logger
}

// NewDeriver constructs a Deriver.
func NewDeriver(completion TextCompletion, minChars, maxTokens int, logger *slog.Logger) *Deriver {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Deriver{
		llm:       completion,
		minChars:  minChars,
		maxTokens: maxTokens,
		logger:    logging.NewComponentLogger(logger, "deriver"),
	}
}

// Derive asks the model for insights. A response that cannot be read as
// {summary, insights} fails with ErrParseFailure and is not retried.
func (d *Deriver) Derive(ctx context.Context, text string) (transcript.Insights, int, error) {
	var empty transcript.Insights
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) < d.minChars {
		return empty, 0, services.Wrap(services.ErrTextTooShort, "reconcile", "derive",
			"input below minimum length", nil)
	}
	if d.llm == nil {
		return empty, 0, services.Wrap(services.ErrConfiguration, "reconcile", "derive",
			"text completion not configured", nil)
	}

	content, tokens, err := d.llm.Complete(ctx, InsightsPrompt, text, d.maxTokens, 0.2)
	if err != nil {
		return empty, 0, services.Wrap(services.ErrProviderFailure, "reconcile", "derive",
			"text completion call failed", err)
	}

	var parsed transcript.Insights
	if err := llm.DecodeLLMJSON(content, &parsed); err != nil {
		return empty, tokens, services.Wrap(services.ErrParseFailure, "reconcile", "derive",
			"decode insights payload", err)
	}
	parsed.Summary = strings.TrimSpace(parsed.Summary)
	if parsed.Summary == "" {
		return empty, tokens, services.Wrap(services.ErrParseFailure, "reconcile", "derive",
			"summary missing from payload", nil)
	}
	insights := parsed.Insights[:0]
	for _, item := range parsed.Insights {
		if item = strings.TrimSpace(item); item != "" {
			insights = append(insights, item)
		}
	}
	parsed.Insights = insights

	logging.WithContext(ctx, d.logger).Debug("insights derived",
		logging.Int("insights", len(parsed.Insights)),
		logging.Int("tokens", tokens),
	)
	return parsed, tokens, nil
}
