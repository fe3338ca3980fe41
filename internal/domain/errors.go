package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures surfaced to callers of the orchestrator.
type ErrorCode string

const (
	ErrNotFound        ErrorCode = "NOT_FOUND"        // 404
	ErrInvalidDocument ErrorCode = "INVALID_DOCUMENT" // 400
	ErrMissingContext  ErrorCode = "MISSING_CONTEXT"  // 400
	ErrMisconfigured   ErrorCode = "MISCONFIGURATION" // 503
	ErrExternalService ErrorCode = "EXTERNAL_SERVICE" // 502
	ErrAgentInvocation ErrorCode = "AGENT_INVOCATION" // 502
)

// Error is a structured failure with a code, an HTTP-ish status and details.
type Error struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
	Err     error
}

// Error implements the error interface. Only the message is returned so it
// can be shown to users and fed back to models verbatim.
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// NewNotFound reports that no itinerary exists for a conversation.
func NewNotFound(conversationID string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Status:  http.StatusNotFound,
		Message: "No itinerary found for conversation ID: " + conversationID,
		Details: map[string]any{"conversation_id": conversationID},
	}
}

// NewInvalidDocument reports malformed itinerary JSON.
func NewInvalidDocument(reason string, err error) *Error {
	msg := "invalid itinerary document"
	if reason != "" {
		msg += ": " + reason
	}
	return &Error{
		Code:    ErrInvalidDocument,
		Status:  http.StatusBadRequest,
		Message: msg,
		Err:     err,
	}
}

// NewMissingContext reports that required trip fields are not set yet.
func NewMissingContext(msg string, missing ...string) *Error {
	return &Error{
		Code:    ErrMissingContext,
		Status:  http.StatusBadRequest,
		Message: msg,
		Details: map[string]any{"missing": missing},
	}
}

// NewMisconfiguration reports a missing credential or endpoint.
func NewMisconfiguration(msg string) *Error {
	return &Error{
		Code:    ErrMisconfigured,
		Status:  http.StatusServiceUnavailable,
		Message: msg,
	}
}

// NewExternalService wraps a failure from a third-party API.
func NewExternalService(service string, err error) *Error {
	return &Error{
		Code:    ErrExternalService,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("%s request failed: %v", service, err),
		Details: map[string]any{"service": service},
		Err:     err,
	}
}

// NewAgentInvocation wraps a failure of the agent runtime for a stage.
func NewAgentInvocation(stage string, err error) *Error {
	return &Error{
		Code:    ErrAgentInvocation,
		Status:  http.StatusBadGateway,
		Message: fmt.Sprintf("Error running %s: %v", stage, err),
		Details: map[string]any{"stage": stage},
		Err:     err,
	}
}

// Is reports whether err, or anything it wraps, is an *Error with the given code.
func Is(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// StatusOf returns the status carried by a domain error, or 500.
func StatusOf(err error) int {
	var e *Error
	if errors.As(err, &e) && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

// CodeOf returns the code carried by a domain error, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
