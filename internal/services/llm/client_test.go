package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionHandler(t *testing.T, message map[string]any, finish string, usage map[string]any) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		choice := map[string]any{"index": 0, "message": message}
		if finish != "" {
			choice["finish_reason"] = finish
		}
		payload := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"model":   "demo-model",
			"choices": []any{choice},
		}
		if usage != nil {
			payload["usage"] = usage
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func assistant(content string) map[string]any {
	return map[string]any{"role": "assistant", "content": content}
}

func quietClient(url string, opts ...Option) *Client {
	opts = append([]Option{WithRetryBackoff(0, 0), WithSleeper(func(time.Duration) {})}, opts...)
	return NewClient(Config{APIKey: "test", BaseURL: url, Model: "demo-model"}, opts...)
}

func TestClientCompleteSendsPromptAndReadsUsage(t *testing.T) {
	var captured map[string]any
	var headers http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		headers = r.Header.Clone()
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decode request: %v", err)
		}
		completionHandler(t, assistant("Ola, mundo."), "stop",
			map[string]any{"prompt_tokens": 40, "completion_tokens": 6, "total_tokens": 46},
		)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:  "test",
		BaseURL: server.URL,
		Model:   "demo-model",
		Referer: "https://example.test",
		Title:   "scribe",
	})
	text, tokens, err := client.Complete(context.Background(), "fix punctuation", "ola mundo", 256, 0.2)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "Ola, mundo." || tokens != 46 {
		t.Fatalf("unexpected completion %q tokens=%d", text, tokens)
	}
	if captured["model"] != "demo-model" || captured["max_tokens"] != float64(256) || captured["temperature"] != 0.2 {
		t.Fatalf("unexpected request body %v", captured)
	}
	if _, ok := captured["response_format"]; ok {
		t.Fatalf("plain completion must not request JSON mode: %v", captured)
	}
	if got := headers.Get("Authorization"); got != "Bearer test" {
		t.Fatalf("unexpected auth header %q", got)
	}
	if headers.Get("HTTP-Referer") != "https://example.test" || headers.Get("X-Title") != "scribe" {
		t.Fatalf("missing attribution headers: %v", headers)
	}
}

func TestNewClientTrimsEndpointSuffix(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, assistant("ok"), "stop", nil))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL + "/chat/completions/", Model: "demo-model"})
	if _, _, err := client.Complete(context.Background(), "system", "user", 0, 0); err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if NewClient(Config{}).cfg.BaseURL != defaultBaseURL {
		t.Fatal("expected default base url")
	}
}

func TestClientCompleteSumsUsageWithoutTotal(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, assistant("ok"), "stop",
		map[string]any{"prompt_tokens": 10, "completion_tokens": 2},
	))
	defer server.Close()

	_, tokens, err := quietClient(server.URL).Complete(context.Background(), "system", "user", 0, 0)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if tokens != 12 {
		t.Fatalf("expected 12 tokens, got %d", tokens)
	}
}

func TestClientCompleteValidatesInput(t *testing.T) {
	client := NewClient(Config{Model: "demo"})
	if _, _, err := client.Complete(context.Background(), "system", "user", 0, 0); err == nil {
		t.Fatal("expected missing api key to fail")
	}
	client = NewClient(Config{APIKey: "k", Model: "demo"})
	if _, _, err := client.Complete(context.Background(), "  ", "user", 0, 0); err == nil {
		t.Fatal("expected missing system prompt to fail")
	}
}

func TestClientCompleteReadsToolCallArguments(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, map[string]any{
		"role":    "assistant",
		"content": "",
		"tool_calls": []any{
			map[string]any{
				"id":   "call_1",
				"type": "function",
				"function": map[string]any{
					"name":      "summarize",
					"arguments": `{"summary":"short","insights":["a"]}`,
				},
			},
		},
	}, "tool_calls", nil))
	defer server.Close()

	content, _, err := quietClient(server.URL).Complete(context.Background(), "system", "user", 0, 0)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if !strings.Contains(content, `"summary"`) {
		t.Fatalf("expected tool call arguments, got %q", content)
	}
}

func TestClientCompleteEmptyContentFailsAfterRetries(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		completionHandler(t, assistant(""), "length", nil)(w, r)
	}))
	defer server.Close()

	_, _, err := quietClient(server.URL, WithRetryMaxAttempts(3)).Complete(context.Background(), "system", "user", 0, 0)
	if err == nil {
		t.Fatal("expected completion to fail")
	}
	if !strings.Contains(err.Error(), "empty content") || !strings.Contains(err.Error(), "finish_reason=length") {
		t.Fatalf("expected empty-content error with finish reason, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestClientRefusalIsNotRetried(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		completionHandler(t, map[string]any{"role": "assistant", "content": "", "refusal": "I can't help with that."}, "stop", nil)(w, r)
	}))
	defer server.Close()

	_, _, err := quietClient(server.URL).Complete(context.Background(), "system", "user", 0, 0)
	var refusal *refusalError
	if !errors.As(err, &refusal) {
		t.Fatalf("expected refusal error, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestClientRetriesOnHTTP429HonoringRetryAfter(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": "rate limited", "type": "rate_limit"},
			})
			return
		}
		completionHandler(t, assistant("Tudo certo."), "stop", nil)(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
	)
	text, _, err := client.Complete(context.Background(), "system", "tudo certo", 0, 0)
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if text != "Tudo certo." || calls != 2 {
		t.Fatalf("unexpected result %q after %d calls", text, calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientDoesNotRetryUnauthorized(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad key"}})
	}))
	defer server.Close()

	if _, _, err := quietClient(server.URL).Complete(context.Background(), "system", "user", 0, 0); err == nil {
		t.Fatal("expected unauthorized to fail")
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
}

func TestClientHealthCheck(t *testing.T) {
	tests := []struct {
		name    string
		content string
		status  int
		wantErr bool
	}{
		{name: "plain", content: `{"ok":true}`},
		{name: "code fence", content: "```json\n{\"ok\":true}\n```"},
		{name: "not ok", content: `{"ok":false}`, wantErr: true},
		{name: "unauthorized", status: http.StatusUnauthorized, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var format any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != 0 {
					w.WriteHeader(tt.status)
					_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "denied"}})
					return
				}
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				format = body["response_format"]
				completionHandler(t, assistant(tt.content), "stop", nil)(w, r)
			}))
			defer server.Close()

			err := quietClient(server.URL).HealthCheck(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("HealthCheck error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.status == 0 && format == nil {
				t.Fatal("health check should request JSON mode")
			}
		})
	}
}

func TestDecodeLLMJSONExtractsEmbeddedObject(t *testing.T) {
	var out struct {
		Summary string `json:"summary"`
	}
	if err := DecodeLLMJSON("Here you go:\n{\"summary\":\"ok\"}\nThanks", &out); err != nil {
		t.Fatalf("DecodeLLMJSON returned error: %v", err)
	}
	if out.Summary != "ok" {
		t.Fatalf("unexpected summary %q", out.Summary)
	}
	if err := DecodeLLMJSON("no json here", &out); err == nil {
		t.Fatal("expected decode failure")
	}
}

func TestParseRetryAfter(t *testing.T) {
	if d, ok := parseRetryAfter("3"); !ok || d != 3*time.Second {
		t.Fatalf("parseRetryAfter(3) = %v %v", d, ok)
	}
	if _, ok := parseRetryAfter("-1"); ok {
		t.Fatal("negative values should be ignored")
	}
	if _, ok := parseRetryAfter(""); ok {
		t.Fatal("blank values should be ignored")
	}
}
