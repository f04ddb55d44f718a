// Package trace provides delivery ID generation and context propagation so
// that log lines emitted while handling a single webhook delivery or outbound
// send can be correlated across package boundaries.
package trace

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// traceKey is the unexported context key used to store the delivery ID.
type traceKey struct{}

// GenerateID generates a unique delivery trace ID.
func GenerateID() string {
	id, err := uuid.NewRandom()
	if err != nil {
		// Fallback to timestamp-based ID if random fails (should never happen)
		return fmt.Sprintf("trace_%d", time.Now().UnixNano())
	}
	return "d_" + id.String()
}

// WithTraceID returns a child context carrying the given trace ID.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceKey{}, id)
}

// FromContext extracts the trace ID from ctx, returning "" if absent.
func FromContext(ctx context.Context) string {
	if v, ok := ctx.Value(traceKey{}).(string); ok {
		return v
	}
	return ""
}
