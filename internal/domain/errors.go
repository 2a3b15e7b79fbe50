package domain

import (
	"errors"
	"fmt"
)

// Common domain errors that can occur during verification sessions.
var (
	// ErrUnknownPersona indicates that a persona name is not present in a registry.
	ErrUnknownPersona = errors.New("unknown persona")

	// ErrDuplicatePersona indicates that two personas share the same name.
	ErrDuplicatePersona = errors.New("duplicate persona")

	// ErrEmptyValue indicates that a required value is empty or nil.
	ErrEmptyValue = errors.New("empty value")

	// ErrInvalidConfiguration indicates that configuration is invalid or incomplete.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrEmptyTranscript indicates that deliberation was requested over a
	// transcript with no rounds.
	ErrEmptyTranscript = errors.New("empty transcript")
)

// ValidationError represents an error that occurred during validation.
// It can contain multiple validation failures.
type ValidationError struct {
	// Entity is the name of the entity that failed validation.
	Entity string

	// Errors contains the list of validation error messages.
	Errors []string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("validation error for %s: %s", e.Entity, e.Errors[0])
	}
	return fmt.Sprintf("validation errors for %s: %v", e.Entity, e.Errors)
}

// AddError adds a new error message to the validation error.
func (e *ValidationError) AddError(msg string) { e.Errors = append(e.Errors, msg) }

// HasErrors returns true if there are any validation errors.
func (e *ValidationError) HasErrors() bool { return len(e.Errors) > 0 }

// NewValidationError creates a new ValidationError for the given entity.
func NewValidationError(entity string) *ValidationError {
	return &ValidationError{
		Entity: entity,
		Errors: make([]string, 0),
	}
}

// BudgetExceededError reports that a session consumed more of a resource
// than its configured budget allows.
type BudgetExceededError struct {
	// LimitType names the exhausted resource: "cost", "tokens" or "calls".
	LimitType string

	// Limit is the configured ceiling.
	Limit float64

	// Used is the consumption observed when the check failed.
	Used float64

	// Persona is the persona whose invocation was refused.
	Persona string
}

// Error implements the error interface for BudgetExceededError.
func (e *BudgetExceededError) Error() string {
	return fmt.Sprintf("budget exceeded: %s limit=%g used=%g persona=%s", e.LimitType, e.Limit, e.Used, e.Persona)
}

// NewBudgetExceededError creates a new BudgetExceededError with the given details.
func NewBudgetExceededError(limitType string, limit, used float64, persona string) *BudgetExceededError {
	return &BudgetExceededError{
		LimitType: limitType,
		Limit:     limit,
		Used:      used,
		Persona:   persona,
	}
}
