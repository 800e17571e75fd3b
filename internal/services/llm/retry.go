package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

type retryHintKey struct{}

// retryHint carries the Retry-After header of a failed response back to the
// retry loop; go-openai errors do not expose response headers.
type retryHint struct {
	after time.Duration
}

func withRetryHint(ctx context.Context, hint *retryHint) context.Context {
	return context.WithValue(ctx, retryHintKey{}, hint)
}

// hintingDoer adds OpenRouter attribution headers and records Retry-After.
type hintingDoer struct {
	client  *http.Client
	referer string
	title   string
}

func (d *hintingDoer) Do(req *http.Request) (*http.Response, error) {
	if d.referer != "" {
		req.Header.Set("HTTP-Referer", d.referer)
	}
	if d.title != "" {
		req.Header.Set("X-Title", d.title)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	if hint, ok := req.Context().Value(retryHintKey{}).(*retryHint); ok && resp.StatusCode >= 400 {
		if after, ok := parseRetryAfter(resp.Header.Get("Retry-After")); ok {
			hint.after = after
		}
	}
	return resp, nil
}

func (c *Client) retryDelay(ctx context.Context, err error, hint *retryHint, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || ctx.Err() != nil || !retryable(err) {
		return 0, false
	}
	if hint != nil && hint.after > 0 {
		return c.capDelay(hint.after), true
	}
	return c.backoffDelay(attempt), true
}

func retryable(err error) bool {
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return true
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return retryableStatus(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return retryableStatus(reqErr.HTTPStatusCode)
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func retryableStatus(code int) bool {
	return code == http.StatusRequestTimeout || code == http.StatusTooManyRequests || code >= 500
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	delay := c.retryBaseDelay
	for i := 1; i < attempt && delay < c.retryMaxDelay; i++ {
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if c.retryMaxDelay > 0 && delay > c.retryMaxDelay {
		return c.retryMaxDelay
	}
	if delay < 0 {
		return 0
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		if delay := time.Until(when); delay > 0 {
			return delay, true
		}
	}
	return 0, false
}
