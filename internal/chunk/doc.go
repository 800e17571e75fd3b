// Package chunk covers the per-chunk half of the pipeline: transcribing one
// audio chunk through a SpeechToText capability and restoring capture order
// from out-of-order completions.
//
// Transcriber makes exactly one provider call per chunk and never retries;
// the session decides whether a ProviderFailure is worth another attempt.
// Sequencer is owned by a single goroutine and is not safe for concurrent
// use.
package chunk
