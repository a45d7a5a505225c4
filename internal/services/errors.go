package services

import (
	"errors"
	"fmt"
)

// AuthorizationError represents a missing or insufficient membership.
// Never retried; surfaced to the caller as 401/403.
type AuthorizationError struct {
	Message string `json:"message"`
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf("authorization failed: %s", e.Message)
}

// NewAuthorizationError creates a new authorization error
func NewAuthorizationError(message string) *AuthorizationError {
	return &AuthorizationError{Message: message}
}

// IsAuthorizationError checks if an error is an AuthorizationError
func IsAuthorizationError(err error) (*AuthorizationError, bool) {
	var authErr *AuthorizationError
	if errors.As(err, &authErr) {
		return authErr, true
	}
	return nil, false
}

// InvalidStateError represents an operation attempted against a contract in
// the wrong lifecycle state. The current status is included so the caller can
// reconcile stale UI state; it is never silently coerced.
type InvalidStateError struct {
	Resource      string `json:"resource"`
	CurrentStatus string `json:"current_status"`
	Message       string `json:"message"`
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("%s in state %q: %s", e.Resource, e.CurrentStatus, e.Message)
}

// NewInvalidStateError creates a new invalid-state error
func NewInvalidStateError(resource, currentStatus, message string) *InvalidStateError {
	return &InvalidStateError{
		Resource:      resource,
		CurrentStatus: currentStatus,
		Message:       message,
	}
}

// IsInvalidStateError checks if an error is an InvalidStateError
func IsInvalidStateError(err error) (*InvalidStateError, bool) {
	var stateErr *InvalidStateError
	if errors.As(err, &stateErr) {
		return stateErr, true
	}
	return nil, false
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new validation error
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError checks if an error is a ValidationError
func IsValidationError(err error) (*ValidationError, bool) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr, true
	}
	return nil, false
}

// ConflictError represents a resource conflict (e.g. already exists)
type ConflictError struct {
	Resource string `json:"resource"`
	Message  string `json:"message"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s conflict: %s", e.Resource, e.Message)
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{Resource: resource, Message: message}
}

// IsConflictError checks if an error is a ConflictError
func IsConflictError(err error) (*ConflictError, bool) {
	var conflictErr *ConflictError
	if errors.As(err, &conflictErr) {
		return conflictErr, true
	}
	return nil, false
}

// ProviderError represents a failed call to the external signature provider.
// The contract's internal state is left unchanged so retry is safe.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("signature provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new provider error
func NewProviderError(op string, err error) *ProviderError {
	return &ProviderError{Op: op, Err: err}
}

// IsProviderError checks if an error is a ProviderError
func IsProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}
