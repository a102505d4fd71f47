// Package handlers provides the HTTP handlers for the slackbridge server:
// the health endpoint and the Slack events endpoint that drives the
// message-to-completion-to-reply flow.
package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"slackbridge/errors"
	"slackbridge/health"
)

// HealthHandler serves the health endpoint. The status value comes from
// the health reporter; the handler only picks the HTTP status code.
type HealthHandler struct {
	reporter *health.Reporter
	logger   *zap.Logger
}

// NewHealthHandler creates a health handler over the given reporter.
func NewHealthHandler(reporter *health.Reporter, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		reporter: reporter,
		logger:   logger,
	}
}

// ServeHTTP implements http.Handler. A healthy report returns 200; an
// unhealthy one returns 500 with the reason in the body.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errors.ErrorWithKind(w, "Method not allowed", errors.InvalidArgument, http.StatusMethodNotAllowed)
		return
	}

	status := h.reporter.Report()

	code := http.StatusOK
	if !status.Healthy() {
		code = http.StatusInternalServerError
		h.logger.Warn("health check unhealthy",
			zap.String("error", status.Error),
		)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(status); err != nil {
		h.logger.Error("failed to encode health status", zap.Error(err))
	}
}
