package types

import "fmt"

// ErrorCode represents a unified error code across the engine.
type ErrorCode string

// Council error codes
const (
	ErrNotFound          ErrorCode = "NOT_FOUND"
	ErrDuplicateID       ErrorCode = "DUPLICATE_ID"
	ErrInvalidTransition ErrorCode = "INVALID_TRANSITION"
	ErrUnknownStage      ErrorCode = "UNKNOWN_STAGE"
)

// Boundary error codes
const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrStoreClosed    ErrorCode = "STORE_CLOSED"
	ErrInternalError  ErrorCode = "INTERNAL_ERROR"
)

// Error represents a structured error with code, message, and metadata.
type Error struct {
	Code       ErrorCode `json:"code"`
	Message    string    `json:"message"`
	HTTPStatus int       `json:"http_status,omitempty"`
	CouncilID  string    `json:"council_id,omitempty"`
	Cause      error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates a new Error with the given code and message.
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithHTTPStatus sets the HTTP status code.
func (e *Error) WithHTTPStatus(status int) *Error {
	e.HTTPStatus = status
	return e
}

// WithCouncilID attaches the council id the error refers to.
func (e *Error) WithCouncilID(id string) *Error {
	e.CouncilID = id
	return e
}

// GetErrorCode extracts the error code from an error.
func GetErrorCode(err error) ErrorCode {
	if e, ok := err.(*Error); ok {
		return e.Code
	}
	return ""
}

// IsCode reports whether err carries the given error code.
func IsCode(err error, code ErrorCode) bool {
	return GetErrorCode(err) == code
}
