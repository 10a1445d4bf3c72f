package core

import "context"

type contextKey int

const (
	requestIDKey contextKey = iota
	actorKey
)

// WithRequestID returns a context carrying the request ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID returns the request ID stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithActor records who is performing the request (client address for now,
// there is no authentication).
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

// Actor returns the actor stored in ctx, or "".
func Actor(ctx context.Context) string {
	a, _ := ctx.Value(actorKey).(string)
	return a
}
