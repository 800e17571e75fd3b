package testsupport

import (
	"context"
	"sync"
	"time"

	"scribe/internal/chunk"
)

// SpeechToText is a scripted chunk.SpeechToText. Responses are keyed by the
// audio payload so concurrent calls stay deterministic.
type SpeechToText struct {
	mu     sync.Mutex
	calls  int
	Texts  map[string]string
	Errors map[string]error
	// Delays holds per-payload latency used to force out-of-order completion.
	Delays map[string]time.Duration
	// IgnoreCancel makes delays run to completion even after ctx ends,
	// like a provider client without a request deadline.
	IgnoreCancel bool
}

// NewSpeechToText returns an empty scripted provider.
func NewSpeechToText() *SpeechToText {
	return &SpeechToText{
		Texts:  make(map[string]string),
		Errors: make(map[string]error),
		Delays: make(map[string]time.Duration),
	}
}

func (s *SpeechToText) Transcribe(ctx context.Context, audio []byte, _ string) (chunk.Transcription, error) {
	key := string(audio)
	s.mu.Lock()
	s.calls++
	delay := s.Delays[key]
	err := s.Errors[key]
	text := s.Texts[key]
	stubborn := s.IgnoreCancel
	s.mu.Unlock()

	if delay > 0 && stubborn {
		time.Sleep(delay)
	} else if delay > 0 {
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return chunk.Transcription{}, ctx.Err()
		case <-timer.C:
		}
	}
	if err != nil {
		return chunk.Transcription{}, err
	}
	return chunk.Transcription{Text: text, Language: "pt"}, nil
}

// Calls returns the number of Transcribe invocations.
func (s *SpeechToText) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Completion is a scripted text completion capability.
type Completion struct {
	mu     sync.Mutex
	calls  int
	Reply  func(systemPrompt, userText string) (string, error)
	Tokens int
}

func (c *Completion) Complete(_ context.Context, systemPrompt, userText string, _ int, _ float64) (string, int, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	if c.Reply == nil {
		return userText, c.Tokens, nil
	}
	out, err := c.Reply(systemPrompt, userText)
	if err != nil {
		return "", 0, err
	}
	return out, c.Tokens, nil
}

// Calls returns the number of Complete invocations.
func (c *Completion) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}
