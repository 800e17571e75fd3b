package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyChunk rejects a chunk with no audio bytes before any provider call.
	ErrEmptyChunk = errors.New("empty chunk")
	// ErrNoSpeech marks a provider response that only means "nothing was said".
	ErrNoSpeech = errors.New("no speech detected")
	// ErrProviderFailure marks a transient external capability failure.
	ErrProviderFailure = errors.New("provider failure")
	// ErrTextTooShort rejects reconciliation or derivation input below the minimum length.
	ErrTextTooShort = errors.New("text too short")
	// ErrParseFailure marks a structured provider response that could not be decoded.
	ErrParseFailure = errors.New("parse failure")
	// ErrSessionClosed is returned when a chunk arrives after finalize or abort.
	ErrSessionClosed = errors.New("session closed")
	// ErrVersionConflict means two commits computed the same version number.
	ErrVersionConflict = errors.New("version conflict")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation error")
	ErrConfiguration   = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrProviderFailure
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Retryable reports whether the caller may retry the failed operation.
func Retryable(err error) bool {
	return err != nil && errors.Is(err, ErrProviderFailure)
}

// Kind returns a short classification label for logs and CLI output.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrEmptyChunk):
		return "empty_chunk"
	case errors.Is(err, ErrNoSpeech):
		return "no_speech"
	case errors.Is(err, ErrTextTooShort):
		return "text_too_short"
	case errors.Is(err, ErrParseFailure):
		return "parse_failure"
	case errors.Is(err, ErrSessionClosed):
		return "session_closed"
	case errors.Is(err, ErrVersionConflict):
		return "version_conflict"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrProviderFailure):
		return "provider_failure"
	default:
		return "internal"
	}
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
