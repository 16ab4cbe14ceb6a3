package telemetry

import "context"

type correlationIDKey struct{}

// WithCorrelationID injects the invocation's correlation id so tools
// can stamp it into their payloads.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey{}, id)
}

// CorrelationIDFrom returns the correlation id, or "" when absent.
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey{}).(string)
	return id
}
