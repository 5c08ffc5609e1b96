package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for the three outcome kinds the rating core distinguishes,
// plus the duplicate-location conflict raised on guard creation.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrTransient    = errors.New("transient storage failure")
)

// Error is a structured application error carrying an HTTP status mapping.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound reports a missing target entity. Deterministic, not retryable.
func NotFound(resource string) *Error {
	return &Error{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     ErrNotFound,
	}
}

// InvalidInput reports a malformed submission. Deterministic, not retryable.
func InvalidInput(message string) *Error {
	return &Error{
		Code:    "VALIDATION_ERROR",
		Message: message,
		Status:  http.StatusUnprocessableEntity,
		Err:     ErrInvalidInput,
	}
}

// Conflict reports a state collision, e.g. a guard reported within the
// proximity window of an existing one.
func Conflict(message string) *Error {
	return &Error{
		Code:    "CONFLICT",
		Message: message,
		Status:  http.StatusConflict,
		Err:     ErrConflict,
	}
}

// Transient reports a storage-layer failure of the atomic sequence. The whole
// unit of work has been rolled back and the caller may safely retry.
func Transient(err error) *Error {
	return &Error{
		Code:    "TRY_AGAIN",
		Message: "temporary storage failure, please retry",
		Status:  http.StatusServiceUnavailable,
		Err:     fmt.Errorf("%w: %w", ErrTransient, err),
	}
}

// HTTPStatus maps an error to its response status, defaulting to 500.
func HTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}
