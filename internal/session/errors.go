package session

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes for session operations.
const (
	CodeNotFound   = "SESSION_NOT_FOUND"
	CodeExpired    = "SESSION_EXPIRED"
	CodeInvalid    = "SESSION_INVALID"
	CodeMissing    = "SESSION_MISSING"
	CodeGeneration = "SESSION_GENERATION_FAILED"
	CodeStorage    = "SESSION_STORAGE_ERROR"
)

// Error represents a session-related error.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func newNotFoundError(id string) *Error {
	return &Error{Code: CodeNotFound, Message: fmt.Sprintf("session not found: %s", id)}
}

func newExpiredError(id string) *Error {
	return &Error{Code: CodeExpired, Message: fmt.Sprintf("session expired: %s", id)}
}

func newInvalidError(reason string) *Error {
	return &Error{Code: CodeInvalid, Message: fmt.Sprintf("session invalid: %s", reason)}
}

func newStorageError(op string, cause error) *Error {
	return &Error{Code: CodeStorage, Message: fmt.Sprintf("session storage error during %s", op), Cause: cause}
}

// ErrorCode extracts the code of a session error, or UNKNOWN_ERROR.
func ErrorCode(err error) string {
	var sessErr *Error
	if errors.As(err, &sessErr) {
		return sessErr.Code
	}
	return "UNKNOWN_ERROR"
}

// HTTPStatus maps a session error to the status returned to clients. Unknown
// and expired sessions answer 404 so MCP clients know to initialize again.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeInvalid, CodeMissing:
		return http.StatusBadRequest
	case CodeNotFound, CodeExpired:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
