// Package observability provides structured logging helpers for Watari.
//
// It wraps log/slog with delivery ID propagation and secret redaction so
// every log line emitted while handling a webhook delivery carries its
// correlation context.
package observability

import (
	"context"
	"log/slog"
	"os"

	"github.com/ktsujino/watari/common/redact"
	"github.com/ktsujino/watari/common/trace"
)

// Setup configures the global slog logger according to the provided level
// and format strings (e.g. level="info", format="json").
func Setup(level, format string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// WithDelivery returns a child logger that always includes the delivery_id
// from ctx.
func WithDelivery(ctx context.Context) *slog.Logger {
	deliveryID := trace.FromContext(ctx)
	if deliveryID == "" {
		return slog.Default()
	}
	return slog.With("delivery_id", deliveryID)
}

// RedactSecrets replaces known-sensitive values in a log message with
// "[REDACTED]".
func RedactSecrets(msg string, sensitiveValues ...string) string {
	return redact.String(msg, sensitiveValues...)
}
