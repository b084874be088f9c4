package goAuthClient

import "context"

type skipAuthContextKey struct{}
type bestEffortContextKey struct{}
type attachedTokenContextKey struct{}

// WithSkipAuth marks requests made with ctx as credential-free. The attach stage
// strips the auth header instead of setting it.
func WithSkipAuth(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipAuthContextKey{}, true)
}

// WithBestEffort marks requests made with ctx as optional: an authentication failure
// in the response is passed through without forcing a logout.
func WithBestEffort(ctx context.Context) context.Context {
	return context.WithValue(ctx, bestEffortContextKey{}, true)
}

func skipAuthFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	skip, _ := ctx.Value(skipAuthContextKey{}).(bool)
	return skip
}

func bestEffortFromContext(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	bestEffort, _ := ctx.Value(bestEffortContextKey{}).(bool)
	return bestEffort
}

func withAttachedToken(ctx context.Context, raw string) context.Context {
	return context.WithValue(ctx, attachedTokenContextKey{}, raw)
}

// attachedTokenFromContext returns the token the attach stage put on the request,
// or "" when the request went out without a credential.
func attachedTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	raw, _ := ctx.Value(attachedTokenContextKey{}).(string)
	return raw
}
