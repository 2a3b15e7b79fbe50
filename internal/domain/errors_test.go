package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("Persona")
		err.AddError("name is required")

		assert.Equal(t, "validation error for Persona: name is required", err.Error())
		assert.True(t, err.HasErrors(), "Should have errors")
		assert.Len(t, err.Errors, 1, "Should have one error")
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("Config")
		err.AddError("unknown panel persona")
		err.AddError("negative pricing")

		assert.Contains(t, err.Error(), "validation errors for Config")
		assert.Len(t, err.Errors, 2, "Should have two errors")
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Config")

		assert.False(t, err.HasErrors(), "Should not have errors")
		assert.Empty(t, err.Errors, "Errors slice should be empty")
	})
}

func TestCommonDomainErrors(t *testing.T) {
	tests := []struct {
		err     error
		message string
	}{
		{ErrUnknownPersona, "unknown persona"},
		{ErrDuplicatePersona, "duplicate persona"},
		{ErrEmptyValue, "empty value"},
		{ErrInvalidConfiguration, "invalid configuration"},
		{ErrEmptyTranscript, "empty transcript"},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error(), "Error message mismatch")
		})
	}
}

func TestBudgetExceededError(t *testing.T) {
	err := NewBudgetExceededError("cost", 0.01, 0.0125, PersonaDefender)

	assert.Equal(t, "budget exceeded: cost limit=0.01 used=0.0125 persona=Defender", err.Error())

	wrapped := fmt.Errorf("invoke: %w", err)
	var target *BudgetExceededError
	assert.True(t, errors.As(wrapped, &target), "Should be extractable with errors.As")
	assert.Equal(t, "cost", target.LimitType)
}
