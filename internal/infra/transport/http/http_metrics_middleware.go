package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/mkrupp/webgallery/internal/infra/metrics"
)

const unmatchedRoute = "unmatched"

// MetricsMiddleware counts requests and observes their latency by route pattern.
// It must wrap the ServeMux directly so the matched pattern is visible after serving.
func MetricsMiddleware(next http.Handler, m *metrics.Metrics) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = unmatchedRoute
		}

		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.StatusCode)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}
