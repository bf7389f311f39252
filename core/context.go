package core

import "context"

type contextKey int

const correlationIDKey contextKey = iota

// WithCorrelationID tags ctx with the request correlation id so that audit
// entries written further down the call chain can reference it.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID returns the correlation id set on ctx, if any.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}
