// Package notifications delivers pipeline events to ntfy.
//
// NewService returns a no-op notifier when no topic is configured, so callers
// publish unconditionally. Delivery failures are returned to the caller,
// which logs them; they never fail the operation that triggered them.
package notifications
