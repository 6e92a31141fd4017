package repositories

import "fmt"

// ErrorCode classifies repository failures for the service layer.
type ErrorCode string

const (
	// ErrorCodeNotFound indicates the referenced document does not exist.
	ErrorCodeNotFound ErrorCode = "not_found"
	// ErrorCodeInvalidInput indicates the caller supplied invalid parameters.
	ErrorCodeInvalidInput ErrorCode = "invalid_input"
	// ErrorCodeConflict indicates a conflicting concurrent mutation.
	ErrorCodeConflict ErrorCode = "conflict"
	// ErrorCodeUnavailable indicates a transient backend outage.
	ErrorCodeUnavailable ErrorCode = "unavailable"
)

// Error is the typed error returned by repository implementations.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Err     error
}

// NewError constructs a typed repository error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
