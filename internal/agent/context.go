package agent

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
)

// ContextWithRequestID tags ctx with the HTTP request it serves so model and
// tool logs can be correlated.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}
