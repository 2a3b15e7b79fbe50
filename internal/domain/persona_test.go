package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersonaRegistry(t *testing.T) {
	reg, err := NewPersonaRegistry(DefaultPersonas()...)
	require.NoError(t, err)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, []string{PersonaSceptic, PersonaDefender, PersonaJury}, reg.Names())

	jury, ok := reg.Get(PersonaJury)
	require.True(t, ok)
	assert.Contains(t, jury.Instructions, "VERDICT (FAITHFUL/MUTATION)")
}

func TestNewPersonaRegistry_Invalid(t *testing.T) {
	tests := []struct {
		name     string
		personas []Persona
		wantMsg  string
	}{
		{
			name:     "empty name",
			personas: []Persona{{Name: " ", Instructions: "x"}},
			wantMsg:  "name is required",
		},
		{
			name:     "empty instructions",
			personas: []Persona{{Name: "Sceptic"}},
			wantMsg:  "instructions are required",
		},
		{
			name:     "duplicate",
			personas: []Persona{{Name: "A", Instructions: "x"}, {Name: "A", Instructions: "y"}},
			wantMsg:  "duplicate persona",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := NewPersonaRegistry(tt.personas...)
			require.Error(t, err)
			assert.Nil(t, reg)

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Error(), tt.wantMsg)
		})
	}
}

func TestPersonaRegistry_Resolve(t *testing.T) {
	reg, err := NewPersonaRegistry(DefaultPersonas()...)
	require.NoError(t, err)

	panel, err := reg.Resolve(PersonaDefender, PersonaSceptic)
	require.NoError(t, err)
	require.Len(t, panel, 2)
	assert.Equal(t, PersonaDefender, panel[0].Name)
	assert.Equal(t, PersonaSceptic, panel[1].Name)

	_, err = reg.Resolve(PersonaSceptic, "Oracle")
	assert.ErrorIs(t, err, ErrUnknownPersona)
}
