// Package util holds the application error type rendered by the HTTP layer.
package util

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return NewDomainError("NOT_FOUND", fmt.Sprintf("%s not found", resource), http.StatusNotFound, details)
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

// NewRateLimited is returned when a session exceeds its chat budget.
func NewRateLimited(message string) error {
	return NewDomainError("RATE_LIMITED", message, http.StatusTooManyRequests, nil)
}

// NewUnavailable reports a required backend that cannot be reached.
func NewUnavailable(dependency string, err error) error {
	de := NewDomainError("DEPENDENCY_UNAVAILABLE", dependency+" unavailable", http.StatusServiceUnavailable, map[string]any{"dependency": dependency})
	de.Err = err
	return de
}

// NewInternalError hides err from clients while keeping it for logs.
func NewInternalError(err error) error {
	de := NewDomainError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError, nil)
	de.Err = err
	return de
}

// ToDomainError converts generic errors to DomainError. A DomainError found
// anywhere in the chain wins; deadline and cancellation map to 504 and 499.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return NewDomainError("NOT_FOUND", "resource not found", http.StatusNotFound, map[string]any{})
	case errors.Is(err, context.DeadlineExceeded):
		de := NewDomainError("TIMEOUT", "request timed out", http.StatusGatewayTimeout, nil)
		de.Err = err
		return de
	case errors.Is(err, context.Canceled):
		de := NewDomainError("CANCELED", "request canceled", 499, nil)
		de.Err = err
		return de
	}
	de := NewDomainError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError, nil)
	de.Err = err
	return de
}

// MapError is ToDomainError typed as error for handler returns.
func MapError(err error) error {
	if de := ToDomainError(err); de != nil {
		return de
	}
	return nil
}
