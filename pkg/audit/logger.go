package audit

import (
	"context"
	"log/slog"
)

// Logger records audit events
type Logger interface {
	// Log records an event. Implementations must be safe for concurrent use.
	Log(ctx context.Context, event *Event) error

	// Close releases any resources held by the logger
	Close() error
}

// LogBestEffort records an event and swallows any failure, logging it via
// slog. Sensitive mutations call this after committing: the audit trail
// must never roll back or fail the primary write it describes.
func LogBestEffort(ctx context.Context, logger Logger, event *Event) {
	if logger == nil {
		return
	}
	if err := logger.Log(ctx, event); err != nil {
		slog.Warn("audit write failed",
			"event_type", string(event.EventType),
			"error", err)
	}
}

// NopLogger discards all events. Useful in tests and for callers that have
// not configured auditing.
type NopLogger struct{}

// Log discards the event
func (NopLogger) Log(ctx context.Context, event *Event) error { return nil }

// Close is a no-op
func (NopLogger) Close() error { return nil }
