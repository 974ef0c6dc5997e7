package logging

import (
	"context"
	"log/slog"

	context_ "github.com/mkrupp/webgallery/internal/infra/context"
)

// RequestHandler decorates records logged with a request context with a
// "req" group holding the trace id and the authenticated username.
type RequestHandler struct {
	next slog.Handler
}

var _ slog.Handler = (*RequestHandler)(nil)

func NewRequestHandler(next slog.Handler) *RequestHandler {
	return &RequestHandler{next: next}
}

func (h *RequestHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs := requestAttrs(ctx); len(attrs) > 0 {
		r.AddAttrs(slog.Attr{Key: "req", Value: slog.GroupValue(attrs...)})
	}

	//nolint:wrapcheck
	return h.next.Handle(ctx, r)
}

func requestAttrs(ctx context.Context) []slog.Attr {
	var attrs []slog.Attr

	if traceID, ok := context_.TraceIDFromContext(ctx); ok && traceID != "" {
		attrs = append(attrs, slog.String("id", traceID))
	}

	if username, ok := context_.IdentityFromContext(ctx); ok {
		attrs = append(attrs, slog.String("user", username))
	}

	return attrs
}

func (h *RequestHandler) WithAttrs(attrs []slog.Attr) Handler {
	return NewRequestHandler(h.next.WithAttrs(attrs))
}

func (h *RequestHandler) WithGroup(name string) Handler {
	return NewRequestHandler(h.next.WithGroup(name))
}

func (h *RequestHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}
