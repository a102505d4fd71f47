package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"slackbridge/health"
)

func TestHealthHandler(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		reporter := health.NewReporter(health.Check{Configured: true}, health.Check{Configured: true})
		handler := NewHealthHandler(reporter, zap.NewNop())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var status health.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "configured", status.Services["slack"])
		assert.Equal(t, "configured", status.Services["openai"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		reporter := health.NewReporter(
			health.Check{Err: fmt.Errorf("invalid OpenAI API key")},
			health.Check{Configured: true},
		)
		handler := NewHealthHandler(reporter, zap.NewNop())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)

		var status health.Status
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
		assert.Equal(t, "unhealthy", status.Status)
		assert.Equal(t, "invalid OpenAI API key", status.Error)
	})

	t.Run("rejects POST", func(t *testing.T) {
		reporter := health.NewReporter(health.Check{Configured: true}, health.Check{Configured: true})
		handler := NewHealthHandler(reporter, zap.NewNop())

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))

		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}
