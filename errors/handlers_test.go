package errors

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogError(t *testing.T) {
	t.Run("bridge error fields", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		logger := zap.New(core)

		LogError(logger, New(DestinationNotFound, "channel not found: C1", nil), "req_123")

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(entries))
		}
		fields := entries[0].ContextMap()
		if fields["error_kind"] != string(DestinationNotFound) {
			t.Errorf("error_kind = %v, want %v", fields["error_kind"], DestinationNotFound)
		}
		if fields["request_id"] != "req_123" {
			t.Errorf("request_id = %v, want req_123", fields["request_id"])
		}
	})

	t.Run("plain error", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		logger := zap.New(core)

		LogError(logger, errors.New("boom"), "req_456")

		entries := logs.All()
		if len(entries) != 1 {
			t.Fatalf("expected 1 log entry, got %d", len(entries))
		}
		if entries[0].Message != "unexpected error" {
			t.Errorf("message = %q, want %q", entries[0].Message, "unexpected error")
		}
	})
}
