// Package health reports whether both upstream integrations were
// constructed and validated successfully.
package health

// Version is reported by the health endpoint.
const Version = "1.0.0"

// Check is the construction outcome of a single upstream client.
type Check struct {
	// Configured is true when the client was constructed and validated.
	Configured bool

	// Err is the captured construction or validation error, if any.
	Err error
}

// Status is the structured health value returned by Report. It never
// carries an error type; failures are flattened to strings so the value
// can be serialized directly.
type Status struct {
	Status   string            `json:"status"`
	Message  string            `json:"message"`
	Version  string            `json:"version,omitempty"`
	Error    string            `json:"error,omitempty"`
	Services map[string]string `json:"services,omitempty"`
}

// Healthy reports whether the status is the healthy one.
func (s Status) Healthy() bool {
	return s.Status == "healthy"
}

// Reporter aggregates the construction outcomes of the upstream clients.
// The outcomes are captured once at startup and never change, so a
// Reporter is safe for concurrent use.
type Reporter struct {
	completion Check
	messaging  Check
}

// NewReporter creates a reporter over the two client outcomes.
func NewReporter(completion, messaging Check) *Reporter {
	return &Reporter{
		completion: completion,
		messaging:  messaging,
	}
}

// Report produces the current health status. It never fails: a missing or
// broken client yields an unhealthy status with a reason, not an error.
func (r *Reporter) Report() Status {
	services := map[string]string{
		"openai": serviceState(r.completion),
		"slack":  serviceState(r.messaging),
	}

	if r.completion.Configured && r.messaging.Configured {
		return Status{
			Status:   "healthy",
			Message:  "Slack chatbot is running",
			Version:  Version,
			Services: services,
		}
	}

	return Status{
		Status:   "unhealthy",
		Message:  "Configuration incomplete",
		Error:    failureReason(r.completion, r.messaging),
		Services: services,
	}
}

func serviceState(c Check) string {
	if c.Configured {
		return "configured"
	}
	return "unavailable"
}

// failureReason prefers a captured construction error over the generic
// missing-configuration message.
func failureReason(checks ...Check) string {
	for _, c := range checks {
		if c.Err != nil {
			return c.Err.Error()
		}
	}
	return "Missing required configuration"
}
