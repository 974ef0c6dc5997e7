package http

import (
	"net/http"

	context_ "github.com/mkrupp/webgallery/internal/infra/context"
	"github.com/mkrupp/webgallery/internal/util/ids"
)

const TraceIDHeader = "X-Request-ID"

const maxTraceIDLen = 128

// TracingMiddleware adds the trace id to the request context and echoes it in the response.
// It uses the X-Request-ID header if present, otherwise generates a new id.
func TracingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := getTraceID(r)
		if traceID != "" {
			w.Header().Set(TraceIDHeader, traceID)
		}

		next.ServeHTTP(w, r.WithContext(context_.WithTraceID(r.Context(), traceID)))
	})
}

func getTraceID(r *http.Request) string {
	if traceID := r.Header.Get(TraceIDHeader); traceID != "" && len(traceID) <= maxTraceIDLen {
		return traceID
	}

	traceID, err := ids.New()
	if err != nil {
		return ""
	}

	return traceID
}
