package clientcore

import "context"

type originContextKey struct{}

// WithOrigin attaches the caller's origin (host, device label, or "local") to
// ctx. The Manager stamps it on every activity record it appends.
func WithOrigin(ctx context.Context, origin string) context.Context {
	return context.WithValue(ctx, originContextKey{}, origin)
}

func originFromContext(ctx context.Context) string {
	if ctx == nil {
		return "local"
	}

	origin, _ := ctx.Value(originContextKey{}).(string)
	if origin == "" {
		return "local"
	}
	return origin
}
