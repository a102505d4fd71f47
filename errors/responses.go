// Package errors provides error response utilities.
package errors

import (
	"errors"
)

// ErrorResponse represents the standardized error response format returned
// to clients when an error occurs. It includes:
//   - Error kind for categorization
//   - Human-readable message
//   - Request ID for correlation
//   - Optional details for additional context
type ErrorResponse struct {
	Kind      Kind                   `json:"kind"`
	Message   string                 `json:"message"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// As is a wrapper around errors.As for better error type assertion
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
