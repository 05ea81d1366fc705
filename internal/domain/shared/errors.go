// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")
	ErrInvalidEntity = errors.New("invalid entity")

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState    = errors.New("invalid state")
	ErrStateTransition = errors.New("invalid state transition")
	ErrExpired         = errors.New("expired")

	// Authorization errors
	ErrUnauthorized = errors.New("unauthorized")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")
	ErrOptimisticLock         = errors.New("optimistic lock failure")

	// External service errors
	ErrExternalService    = errors.New("external service error")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrTimeout            = errors.New("operation timeout")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "session", "catalog", "achievement"
	Op      string // Operation that failed, e.g., "Authenticate", "CompleteWorld"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Session domain errors
var (
	ErrSessionNotFound  = NewDomainError("session", "Get", ErrNotFound, "session not found")
	ErrInvalidCode      = NewDomainError("session", "Authenticate", ErrUnauthorized, "access code does not resolve to a session")
	ErrExpiredCode      = NewDomainError("session", "Authenticate", ErrExpired, "access code has expired")
	ErrWorldLocked      = NewDomainError("session", "StartWorld", ErrStateTransition, "world is locked")
	ErrWorldNotStarted  = NewDomainError("session", "CompleteWorld", ErrInvalidState, "world is not in progress")
	ErrStaleRead        = NewDomainError("session", "Refresh", ErrConcurrentModification, "refreshed copy is stale")
	ErrStoreUnavailable = NewDomainError("session", "Mutate", ErrServiceUnavailable, "session store is unavailable")
	ErrVersionConflict  = NewDomainError("session", "Mutate", ErrOptimisticLock, "session version conflict")
)

// Catalog domain errors
var (
	ErrWorldNotFound       = NewDomainError("catalog", "Definition", ErrNotFound, "world definition not found")
	ErrInvalidWorldIndex   = NewDomainError("catalog", "Validate", ErrValueOutOfRange, "world index out of range")
	ErrInvalidPrerequisite = NewDomainError("catalog", "Validate", ErrInvalidEntity, "prerequisite references unknown world")
	ErrCatalogInvalid      = NewDomainError("catalog", "Load", ErrInvalidEntity, "catalog failed validation")
)

// Achievement domain errors
var (
	ErrAchievementNotFound = NewDomainError("achievement", "Definition", ErrNotFound, "achievement definition not found")
	ErrDuplicateDefinition = NewDomainError("achievement", "Load", ErrAlreadyExists, "duplicate achievement id")
	ErrNilPredicate        = NewDomainError("achievement", "Load", ErrInvalidEntity, "achievement predicate is nil")
)

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrEmptyValue) ||
		errors.Is(err, ErrNegativeValue) ||
		errors.Is(err, ErrValueOutOfRange)
}

// IsAuthentication checks if the error belongs to the authentication taxonomy
// (invalid or expired access codes).
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrExpired)
}

// IsRetryable checks if the operation can be retried.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrConcurrentModification) ||
		errors.Is(err, ErrOptimisticLock)
}
