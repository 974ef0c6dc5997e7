package metrics_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mkrupp/webgallery/internal/infra/metrics"
)

func TestHandlerExposesCollectors(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	m.CascadePartialFails.Inc()
	m.HTTPRequests.WithLabelValues("GET", "/api/users", "200").Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.CascadePartialFails), 0)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(body), "gallery_cascade_partial_failures_total 1"))
	assert.True(t, strings.Contains(string(body), `gallery_http_requests_total{code="200",method="GET",route="/api/users"} 1`))
}
