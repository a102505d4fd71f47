package health

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReport(t *testing.T) {
	t.Run("both clients present", func(t *testing.T) {
		status := NewReporter(Check{Configured: true}, Check{Configured: true}).Report()

		assert.True(t, status.Healthy())
		assert.Equal(t, "healthy", status.Status)
		assert.Equal(t, "Slack chatbot is running", status.Message)
		assert.Equal(t, Version, status.Version)
		assert.Equal(t, "configured", status.Services["openai"])
		assert.Equal(t, "configured", status.Services["slack"])
	})

	t.Run("completion client missing", func(t *testing.T) {
		status := NewReporter(Check{}, Check{Configured: true}).Report()

		assert.False(t, status.Healthy())
		assert.Equal(t, "Configuration incomplete", status.Message)
		assert.Equal(t, "Missing required configuration", status.Error)
		assert.Equal(t, "unavailable", status.Services["openai"])
	})

	t.Run("messaging client missing", func(t *testing.T) {
		status := NewReporter(Check{Configured: true}, Check{}).Report()

		assert.False(t, status.Healthy())
		assert.Equal(t, "unavailable", status.Services["slack"])
	})

	t.Run("construction error captured", func(t *testing.T) {
		status := NewReporter(
			Check{Err: fmt.Errorf("invalid_credential: invalid OpenAI API key")},
			Check{Configured: true},
		).Report()

		assert.False(t, status.Healthy())
		assert.Equal(t, "invalid_credential: invalid OpenAI API key", status.Error)
	})
}
