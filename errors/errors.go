// Package errors provides the error handling system for the slackbridge
// server. It defines a closed vocabulary of error kinds covering both caller
// misuse and upstream API failures, structured JSON error responses, request
// ID tracking, and integrated logging with Uber's zap logger.
//
// The package distinguishes two tiers of errors:
//
//   - Argument errors (InvalidArgument) are raised locally, before any
//     network round trip, when a caller passes an empty credential, message,
//     or destination.
//   - Upstream errors are raised only after an actual round trip to Slack or
//     OpenAI and carry a stable local kind plus the upstream-supplied detail.
//
// Basic usage:
//
//	// Simple error response
//	errors.Error(w, "Something went wrong", http.StatusBadRequest)
//
//	// Kind-specific error with context
//	errors.ErrorWithKind(w, "Invalid input", errors.InvalidArgument, http.StatusBadRequest)
//
// For more complex scenarios, use the constructors in types.go:
//
//	err := errors.NewInvalidArgument("message cannot be empty", map[string]interface{}{
//	    "field": "message",
//	})
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"
)

// DefaultLogger is the default zap logger instance used throughout the
// package. It is initialized to a production configuration but can be
// overridden using SetLogger.
var DefaultLogger *zap.Logger

func init() {
	var err error
	DefaultLogger, err = zap.NewProduction()
	if err != nil {
		DefaultLogger = zap.NewNop()
	}
}

// SetLogger allows setting a custom zap logger instance.
// If nil is provided, the function will do nothing to prevent
// accidentally disabling logging.
func SetLogger(logger *zap.Logger) {
	if logger != nil {
		DefaultLogger = logger
	}
}

// Kind is the closed enumeration of error categories used across the
// slackbridge components. Upstream-supplied string error codes are always
// translated into one of these kinds at the client boundary; no raw upstream
// error type crosses a component boundary.
type Kind string

const (
	// InvalidArgument represents caller misuse: empty credentials, empty
	// messages, empty destinations. Raised before any network call.
	InvalidArgument Kind = "invalid_argument"

	// InvalidCredential represents a credential rejected by the upstream
	// service during validation.
	InvalidCredential Kind = "invalid_credential"

	// InitializationFailed represents a client validation failure that is
	// neither an invalid credential nor an inactive account.
	InitializationFailed Kind = "initialization_failed"

	// AccountInactive represents a Slack workspace account that has been
	// deactivated.
	AccountInactive Kind = "account_inactive"

	// EmptyUpstreamResponse represents a completion response with zero
	// choices.
	EmptyUpstreamResponse Kind = "empty_upstream_response"

	// UpstreamAuthFailed represents an authentication failure on a
	// completion call after construction.
	UpstreamAuthFailed Kind = "upstream_auth_failed"

	// UpstreamRateLimited represents a rate limit reported by either
	// upstream. The caller may retry later; this server never retries.
	UpstreamRateLimited Kind = "upstream_rate_limited"

	// UpstreamAPIError represents a generic upstream API error carrying the
	// upstream detail or error code.
	UpstreamAPIError Kind = "upstream_api_error"

	// UpstreamUnknownError represents a failure that did not come back as a
	// recognizable upstream API error, such as a transport failure.
	UpstreamUnknownError Kind = "upstream_unknown_error"

	// UpstreamRejected represents an ok:false response without a usable
	// error code.
	UpstreamRejected Kind = "upstream_rejected"

	// DestinationNotFound represents a Slack channel that does not exist.
	DestinationNotFound Kind = "destination_not_found"

	// NotAMember represents a channel the bot has not been invited to.
	NotAMember Kind = "not_in_channel"

	// DestinationArchived represents an archived Slack channel.
	DestinationArchived Kind = "destination_archived"

	// MessageTooLong represents message text over the Slack length limit.
	MessageTooLong Kind = "message_too_long"

	// ThreadNotFound represents a thread reference that does not resolve.
	ThreadNotFound Kind = "thread_not_found"

	// InternalError represents unexpected internal server errors.
	InternalError Kind = "internal_error"

	// NotFoundError represents an unknown route.
	NotFoundError Kind = "not_found"
)

// BridgeError is the error type used across the slackbridge codebase. It
// implements the error interface and is designed to be serialized to JSON
// for API responses while keeping internal error context for logging.
type BridgeError struct {
	// Kind categorizes the error for exhaustive handling by callers
	Kind Kind `json:"kind"`

	// Message is a human-readable error description
	Message string `json:"message"`

	// Code is the HTTP status code (not exposed in JSON)
	Code int `json:"-"`

	// RequestID links the error to a specific request, when available
	RequestID string `json:"request_id,omitempty"`

	// Details contains additional error context, such as the verbatim
	// upstream error code
	Details map[string]interface{} `json:"details,omitempty"`

	// err is the underlying error (not exposed in JSON)
	err error
}

// Error implements the error interface. It combines the kind, message, and
// underlying error (if any).
func (e *BridgeError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error, implementing the unwrap
// interface for error chains.
func (e *BridgeError) Unwrap() error {
	return e.err
}

// Is implements error matching for errors.Is, matching on Kind while
// ignoring other fields.
func (e *BridgeError) Is(target error) bool {
	t, ok := target.(*BridgeError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is a *BridgeError of the given kind anywhere
// in its chain.
func IsKind(err error, kind Kind) bool {
	var be *BridgeError
	if !errors.As(err, &be) {
		return false
	}
	return be.Kind == kind
}

// WriteError formats and writes a BridgeError to an http.ResponseWriter.
// It sets the appropriate content type and status code, then writes
// the error as a JSON response.
func WriteError(w http.ResponseWriter, err *BridgeError) {
	w.Header().Set("Content-Type", "application/json")
	code := err.Code
	if code == 0 {
		code = http.StatusInternalServerError
	}
	w.WriteHeader(code)
	if encErr := json.NewEncoder(w).Encode(err); encErr != nil {
		DefaultLogger.Error("failed to encode error response", zap.Error(encErr))
	}
}

// Error is a drop-in replacement for http.Error that creates and writes
// a BridgeError with the InternalError kind. It automatically includes
// the request ID from the response headers if available.
func Error(w http.ResponseWriter, message string, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &BridgeError{
		Kind:      InternalError,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}

// ErrorWithKind is like Error but allows specifying the error kind.
func ErrorWithKind(w http.ResponseWriter, message string, kind Kind, code int) {
	requestID := w.Header().Get("X-Request-ID")
	err := &BridgeError{
		Kind:      kind,
		Message:   message,
		Code:      code,
		RequestID: requestID,
	}
	WriteError(w, err)
}
