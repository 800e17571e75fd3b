package reconcile

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/textutil"
	"scribe/internal/transcript"
)

// DefaultMinChars is the shortest text worth sending for correction.
const DefaultMinChars = 10

// TextCompletion is the chat completion capability shared by correction and
// derivation.
type TextCompletion interface {
	Complete(ctx context.Context, systemPrompt, userText string, maxTokens int, temperature float64) (string, int, error)
}

// CorrectorOptions tunes the correction pass.
type CorrectorOptions struct {
	MinChars  int
	MaxTokens int
	// StrictFidelity discards corrections whose word tokens differ from the
	// input instead of only reporting the drift.
	StrictFidelity bool
}

// Corrector applies the punctuation and casing pass.
type Corrector struct {
	llm    TextCompletion
	opts   CorrectorOptions
	logger *slog.Logger
}

// NewCorrector constructs a Corrector. A nil TextCompletion makes every call
// degrade to the original text.
func NewCorrector(llm TextCompletion, opts CorrectorOptions, logger *slog.Logger) *Corrector {
	if opts.MinChars <= 0 {
		opts.MinChars = DefaultMinChars
	}
	return &Corrector{
		llm:    llm,
		opts:   opts,
		logger: logging.NewComponentLogger(logger, "reconciler"),
	}
}

// Correct returns the corrected text and the tokens spent. On ErrTextTooShort
// and on provider failure the original text is returned together with the
// error; callers treat the latter as a degrade, not a failure.
func (c *Corrector) Correct(ctx context.Context, text string) (string, int, error) {
	trimmed := strings.TrimSpace(text)
	if utf8.RuneCountInString(trimmed) < c.minChars() {
		return text, 0, services.Wrap(services.ErrTextTooShort, "reconcile", "correct",
			"input below minimum length", nil)
	}
	if c == nil || c.llm == nil {
		return text, 0, services.Wrap(services.ErrProviderFailure, "reconcile", "correct",
			"text completion not configured", nil)
	}

	logger := logging.WithContext(ctx, c.logger)
	corrected, tokens, err := c.llm.Complete(ctx, CorrectionPrompt, trimmed, c.opts.MaxTokens, 0)
	if err != nil {
		return text, 0, services.Wrap(services.ErrProviderFailure, "reconcile", "correct",
			"text completion call failed", err)
	}
	corrected = strings.TrimSpace(corrected)
	if corrected == "" {
		return text, tokens, services.Wrap(services.ErrProviderFailure, "reconcile", "correct",
			"empty correction", nil)
	}

	if !textutil.WordsEqual(trimmed, corrected) {
		attrs := []logging.Attr{
			logging.Int("input_words", textutil.CountWords(trimmed)),
			logging.Int("output_words", textutil.CountWords(corrected)),
			logging.Float64("word_similarity", textutil.Similarity(trimmed, corrected)),
			logging.String(logging.FieldErrorHint, "model changed words while correcting punctuation"),
		}
		if c.opts.StrictFidelity {
			attrs = append(attrs, logging.String(logging.FieldImpact, "correction discarded"))
			logging.WarnWithContext(logger, "correction changed word tokens", "fidelity_drift", attrs...)
			return text, tokens, nil
		}
		attrs = append(attrs, logging.String(logging.FieldImpact, "corrected text kept"))
		logging.WarnWithContext(logger, "correction changed word tokens", "fidelity_drift", attrs...)
	}

	logger.Debug("transcript corrected",
		logging.Int("tokens", tokens),
		logging.Int("chars", utf8.RuneCountInString(corrected)),
	)
	return corrected, tokens, nil
}

func (c *Corrector) minChars() int {
	if c == nil || c.opts.MinChars <= 0 {
		return DefaultMinChars
	}
	return c.opts.MinChars
}

// ApplyToSegments spreads corrected text back over the speech segments it
// was built from. Each segment takes as many whitespace-separated words as
// it had before. When the word counts differ the segments are returned
// unchanged and ok is false.
func ApplyToSegments(segments []transcript.Segment, corrected string) ([]transcript.Segment, bool) {
	words := strings.Fields(corrected)
	total := 0
	for _, seg := range segments {
		if seg.Event.IsEvent() {
			continue
		}
		total += len(strings.Fields(seg.Text))
	}
	if total != len(words) {
		return segments, false
	}

	out := transcript.CloneSegments(segments)
	pos := 0
	for i := range out {
		if out[i].Event.IsEvent() {
			continue
		}
		n := len(strings.Fields(out[i].Text))
		if n == 0 {
			continue
		}
		out[i].Text = strings.Join(words[pos:pos+n], " ")
		pos += n
	}
	return out, true
}
