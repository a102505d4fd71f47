package errors

import (
	"net/http"
)

// statusForKind maps each error kind to the HTTP status used when the error
// is written as a response. Argument errors are client errors; upstream
// errors are gateway errors unless a more specific status applies.
func statusForKind(kind Kind) int {
	switch kind {
	case InvalidArgument:
		return http.StatusBadRequest
	case InvalidCredential, UpstreamAuthFailed:
		return http.StatusUnauthorized
	case AccountInactive, NotAMember:
		return http.StatusForbidden
	case DestinationNotFound, ThreadNotFound, NotFoundError:
		return http.StatusNotFound
	case DestinationArchived:
		return http.StatusGone
	case MessageTooLong:
		return http.StatusRequestEntityTooLarge
	case UpstreamRateLimited:
		return http.StatusTooManyRequests
	case InternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

// New creates a BridgeError with the given kind, message, and wrapped cause.
// The HTTP status is derived from the kind. For most cases, prefer one of
// the specialized constructors below.
func New(kind Kind, message string, err error) *BridgeError {
	return &BridgeError{
		Kind:    kind,
		Message: message,
		Code:    statusForKind(kind),
		err:     err,
	}
}

// NewWithDetails is New with an additional details map, used to carry
// context such as the verbatim upstream error code or the destination that
// could not be found.
func NewWithDetails(kind Kind, message string, details map[string]interface{}, err error) *BridgeError {
	return &BridgeError{
		Kind:    kind,
		Message: message,
		Code:    statusForKind(kind),
		Details: details,
		err:     err,
	}
}

// NewInvalidArgument creates an argument error. Use this for caller misuse
// detected before any network call:
//   - Empty or malformed credentials
//   - Empty messages or destinations
//
// Example:
//
//	err := errors.NewInvalidArgument("message cannot be empty", map[string]interface{}{
//	    "field": "message",
//	})
func NewInvalidArgument(message string, details map[string]interface{}) *BridgeError {
	return &BridgeError{
		Kind:    InvalidArgument,
		Message: message,
		Code:    http.StatusBadRequest,
		Details: details,
	}
}

// NewInternalError creates an internal server error with appropriate
// defaults. Use this for unexpected errors not covered by other kinds,
// such as panics.
func NewInternalError(requestID string, err error) *BridgeError {
	return &BridgeError{
		Kind:      InternalError,
		Message:   "An internal error occurred",
		Code:      http.StatusInternalServerError,
		RequestID: requestID,
		err:       err,
	}
}

// NewRateLimitError creates a rate limit error. retryAfter is the number of
// seconds the upstream asked us to wait; the server surfaces it to the
// caller rather than retrying itself.
func NewRateLimitError(message string, retryAfter int, err error) *BridgeError {
	details := map[string]interface{}{}
	if retryAfter > 0 {
		details["retry_after"] = retryAfter
	}
	return &BridgeError{
		Kind:    UpstreamRateLimited,
		Message: message,
		Code:    http.StatusTooManyRequests,
		Details: details,
		err:     err,
	}
}
