// Package openaistt adapts the OpenAI audio transcription endpoint (and any
// compatible server) to chunk.SpeechToText.
//
// Requests use verbose_json so the adapter can read per-segment
// no_speech_prob and avg_logprob. Segments the model itself flags as silence
// are dropped, and the chunk confidence is the geometric mean token
// probability of what remains.
package openaistt
