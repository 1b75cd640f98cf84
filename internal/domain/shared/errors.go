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

	// Validation errors
	ErrValidation      = errors.New("validation error")
	ErrInvalidID       = errors.New("invalid ID")
	ErrInvalidInput    = errors.New("invalid input")
	ErrEmptyValue      = errors.New("value cannot be empty")
	ErrNegativeValue   = errors.New("value cannot be negative")
	ErrValueOutOfRange = errors.New("value out of range")

	// State errors
	ErrInvalidState = errors.New("invalid state")

	// Concurrency errors
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// Infrastructure errors
	ErrUnavailable = errors.New("service unavailable")
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "review", "progression"
	Op      string // Operation that failed, e.g., "Schedule", "Award"
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

// Review domain errors
var (
	// ErrInvalidGrade is returned when a review answer carries a grade
	// outside the 0-5 scale. Rejected before any state mutation.
	ErrInvalidGrade = NewDomainError("review", "Schedule", ErrValueOutOfRange, "grade must be between 0 and 5")

	// ErrItemNotFound is returned when a reviewable item does not exist.
	// Items are never auto-created on review.
	ErrItemNotFound = NewDomainError("review", "Find", ErrNotFound, "reviewable item not found")
)

// Progression domain errors
var (
	// ErrProfileNotFound is returned by reads when the student has no
	// engagement profile yet. The orchestrator auto-creates profiles on
	// first activity; queries surface the absence.
	ErrProfileNotFound = NewDomainError("progression", "Find", ErrNotFound, "engagement profile not found")

	// ErrUnknownActivityType is returned when an activity classification
	// has no entry in the XP rule table. Missing rules are an explicit
	// error, never a silent zero-XP award.
	ErrUnknownActivityType = NewDomainError("progression", "Award", ErrInvalidInput, "unknown activity type")

	// ErrStaleProfile is returned when a versioned profile write loses an
	// optimistic-concurrency race. The caller must retry the entire
	// orchestrator invocation from a fresh read.
	ErrStaleProfile = NewDomainError("progression", "Save", ErrConcurrentModification, "profile was modified concurrently")
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

// IsConcurrentModification checks if the error is an optimistic-lock
// conflict that warrants a full re-run by the caller.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
