package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slackbridge/config"
	"slackbridge/errors"
	"slackbridge/health"
	"slackbridge/server/handlers"
	"slackbridge/server/metrics"
)

func newTestRouter(events http.Handler) *Router {
	reporter := health.NewReporter(health.Check{Configured: true}, health.Check{Configured: true})
	healthHandler := handlers.NewHealthHandler(reporter, zap.NewNop())
	return NewRouter(healthHandler, events, metrics.NewMetrics(), config.DefaultConfig(), zap.NewNop())
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var status health.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, "healthy", status.Status)
}

func TestRouter_Metrics(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "slackbridge_http_requests_total")
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.NotFoundError, resp.Kind)
}

func TestRouter_EventsUnavailableWithoutClients(t *testing.T) {
	router := newTestRouter(nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/slack/events", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	var resp errors.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.InitializationFailed, resp.Kind)
}

func TestRouter_EventsWired(t *testing.T) {
	called := false
	events := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	})
	router := newTestRouter(events)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/slack/events", nil))

	assert.True(t, called)
	assert.Equal(t, http.StatusOK, w.Code)
}
