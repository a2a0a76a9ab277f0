package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupExposesRecordedMetrics(t *testing.T) {
	m, handler, err := Setup("publicator-test")
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordHTTPRequest(ctx, http.MethodGet, "/medias", http.StatusOK, 25*time.Millisecond)
	m.RecordResourceError(ctx, "medias", "CONFLICT")
	m.RecordRateLimited(ctx)
	m.IncrementInFlight(ctx)
	m.DecrementInFlight(ctx)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	out := string(body)

	assert.Contains(t, out, "publicator_http_requests_total")
	assert.Contains(t, out, "publicator_http_duration_seconds")
	assert.Contains(t, out, `resource="medias"`)
	assert.Contains(t, out, "publicator_rate_limited_total")
}

func TestSetupTwice(t *testing.T) {
	_, _, err := Setup("first")
	require.NoError(t, err)
	_, _, err = Setup("second")
	require.NoError(t, err)
}
