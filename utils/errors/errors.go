package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError represents a custom error type for API responses
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Details string `json:"details,omitempty"`
}

// Error returns the error message
func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on Code so that errors.Is works against the sentinels below
// even after Wrap or WithDetails produced a copy.
func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithDetails returns a copy of e carrying the given details.
func (e *APIError) WithDetails(details string) *APIError {
	cp := *e
	cp.Details = details
	return &cp
}

func NewAPIError(code, message string, status int, details ...string) *APIError {
	err := &APIError{
		Code:    code,
		Message: message,
		Status:  status,
	}
	if len(details) > 0 {
		err.Details = details[0]
	}
	return err
}

var (
	ErrInvalidInput = NewAPIError("INVALID_INPUT", "Invalid request data", http.StatusBadRequest)
	ErrUnauthorized = NewAPIError("UNAUTHORIZED", "Authentication required", http.StatusUnauthorized)
	ErrForbidden    = NewAPIError("FORBIDDEN", "Access denied", http.StatusForbidden)
	ErrNotFound     = NewAPIError("NOT_FOUND", "Resource not found", http.StatusNotFound)
	ErrInternal     = NewAPIError("INTERNAL_SERVER_ERROR", "Internal server error", http.StatusInternalServerError)
	ErrConflict     = NewAPIError("CONFLICT", "Resource conflict", http.StatusConflict)

	ErrValidation  = NewAPIError("VALIDATION_ERROR", "Validation failed", http.StatusBadRequest)
	ErrAuth        = NewAPIError("AUTH_ERROR", "Incorrect email or password.", http.StatusUnauthorized)
	ErrInvalidAuth = NewAPIError("INVALID_TOKEN", "Invalid or expired refresh token", http.StatusForbidden)
	ErrUpstream    = NewAPIError("UPSTREAM_ERROR", "Upstream service failed", http.StatusBadGateway)
	ErrPersistence = NewAPIError("PERSISTENCE_ERROR", "Failed to persist data", http.StatusInternalServerError)
)

// Validation builds a ValidationError with a caller-facing message.
func Validation(message string) *APIError {
	return NewAPIError(ErrValidation.Code, message, ErrValidation.Status)
}

// Upstream wraps a failed call to the language model or a search API.
func Upstream(err error, service string) *APIError {
	return NewAPIError(ErrUpstream.Code, service+" request failed", ErrUpstream.Status, err.Error())
}

// Persistence wraps a failed store write.
func Persistence(err error) *APIError {
	return Wrap(err, ErrPersistence.Code, ErrPersistence.Message, ErrPersistence.Status)
}

func Wrap(err error, code, message string, status int) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return NewAPIError(code, message, status, err.Error())
}
