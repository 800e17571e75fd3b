// Package llm is the text completion client behind punctuation correction and
// insight derivation. It talks to any OpenAI-compatible chat endpoint through
// go-openai; OpenRouter is the default base URL.
//
// Complete returns the reply text and the token usage the provider reported.
// Replies that arrive as tool or function call arguments are accepted as
// text. HealthCheck asks for a fixed JSON object and is used by doctor.
// DecodeLLMJSON tolerates code fences and prose around a JSON object.
//
// Requests are retried on 408, 429 and 5xx responses, network timeouts and
// empty replies, with exponential backoff (1s doubling to 10s, five attempts
// by default). A Retry-After header overrides the backoff. Refusals and
// other 4xx responses fail immediately.
package llm
