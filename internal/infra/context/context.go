// Package context carries request scoped values: the trace id, the session
// token presented by the client and the identity it resolved to.
package context

import (
	"context"
)

type contextKey string

const (
	contextKeyTraceID  = contextKey("traceID")
	contextKeyIdentity = contextKey("identity")
	contextKeyToken    = contextKey("sessionToken")
)

// TraceIDFromContext extracts the trace ID from the context.
func TraceIDFromContext(ctx context.Context) (string, bool) {
	traceID, ok := ctx.Value(contextKeyTraceID).(string)

	return traceID, ok
}

// WithTraceID returns a context carrying traceID.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, contextKeyTraceID, traceID)
}

// IdentityFromContext returns the username of the authenticated requester.
// It returns false for anonymous requests.
func IdentityFromContext(ctx context.Context) (string, bool) {
	username, ok := ctx.Value(contextKeyIdentity).(string)

	return username, ok && username != ""
}

// WithIdentity returns a context carrying the authenticated username.
func WithIdentity(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, contextKeyIdentity, username)
}

// SessionTokenFromContext returns the raw session token the request presented.
func SessionTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(contextKeyToken).(string)

	return token, ok && token != ""
}

// WithSessionToken returns a context carrying the presented session token.
func WithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, contextKeyToken, token)
}
