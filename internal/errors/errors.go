// Package errors provides domain-specific error types and sentinel errors
// for improved error handling across the application.
package errors

import (
	"errors"
	"fmt"
)

// Sentinel errors for common scenarios.
// Use errors.Is() to check these errors in your code.
var (
	// ErrNotFound indicates a requested resource was not found.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates user provided invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrTimeout indicates an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrProviderUnavailable indicates an external provider (places, LLM) could not serve the call.
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrStorage indicates a persistence failure.
	ErrStorage = errors.New("storage failure")
)

// ValidationError represents input validation failures.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// Is reports ValidationError as ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ProviderError represents a failed call to an external provider with the
// HTTP status when one was received.
type ProviderError struct {
	Provider   string
	StatusCode int
	Status     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 && e.Err == nil {
		return fmt.Sprintf("provider %s error (status=%d): %s", e.Provider, e.StatusCode, e.Status)
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s error (status=%d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("provider %s error: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is reports ProviderError as ErrProviderUnavailable.
func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// NewProviderError creates a new provider error.
func NewProviderError(provider string, statusCode int, status string, err error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		StatusCode: statusCode,
		Status:     status,
		Err:        err,
	}
}
