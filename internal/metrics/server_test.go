package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandlerServesRegisteredMetrics(t *testing.T) {
	SetBuildInfo("1.2.3", "abc123", "2026-01-01")
	AlertsCreated.Inc()

	rec := httptest.NewRecorder()
	Handler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `alerts_build_info{build_time="2026-01-01",commit="abc123",version="1.2.3"} 1`)
	assert.Contains(t, body, "alerts_created_total")
}

func TestHandlerIndexAndUnknownPaths(t *testing.T) {
	h := Handler(nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/metrics")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/other", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestNewServerAddr(t *testing.T) {
	assert.Equal(t, ":9101", NewServer(":9101", nil).Addr())
}
