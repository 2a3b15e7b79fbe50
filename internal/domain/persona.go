// Package domain contains the core domain models for claim verification
// sessions: personas, conversations, rounds, usage accounting, claim
// segmentation, verdicts and the session record itself.
package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Well-known persona names used by the default panel and jury.
const (
	PersonaSceptic  = "Sceptic"
	PersonaDefender = "Defender"
	PersonaJury     = "Jury"
)

// Persona is a named behavioral profile. The instruction text is sent as the
// system prompt of every generation request made on the persona's behalf.
type Persona struct {
	// Name identifies the persona and is unique within a registry.
	Name string `json:"name" yaml:"name"`

	// Instructions is the immutable behavioral prompt.
	Instructions string `json:"instructions" yaml:"instructions"`
}

// DefaultPersonas returns the stock Sceptic, Defender and Jury personas.
func DefaultPersonas() []Persona {
	return []Persona{
		{
			Name: PersonaSceptic,
			Instructions: "You find problems with claims. Look for exaggeration, missing context, or misleading framing.\n" +
				"Quote specific parts. Say FAITHFUL or MUTATION at the end. Keep it to 3-4 sentences.",
		},
		{
			Name: PersonaDefender,
			Instructions: "You defend reasonable interpretations. Is the core meaning preserved despite simplification?\n" +
				"Quote specific parts. Say FAITHFUL or MUTATION at the end. Keep it to 3-4 sentences.",
		},
		{
			Name: PersonaJury,
			Instructions: "You are a jury deciding if a claim accurately represents a fact.\n" +
				"Give: VERDICT (FAITHFUL/MUTATION), CONFIDENCE (0-100%), and a 1-2 sentence SUMMARY.",
		},
	}
}

// PersonaRegistry holds named personas. It is built once at start-up and is
// read-only afterwards, so it is safe to share.
type PersonaRegistry struct {
	byName map[string]Persona
	order  []string
}

// NewPersonaRegistry builds a registry from the given personas. Names must be
// non-empty and unique; instruction text must be non-empty.
func NewPersonaRegistry(personas ...Persona) (*PersonaRegistry, error) {
	r := &PersonaRegistry{
		byName: make(map[string]Persona, len(personas)),
		order:  make([]string, 0, len(personas)),
	}

	verr := NewValidationError("PersonaRegistry")
	for i, p := range personas {
		name := strings.TrimSpace(p.Name)
		if name == "" {
			verr.AddError(fmt.Sprintf("persona %d: name is required", i))
			continue
		}
		if strings.TrimSpace(p.Instructions) == "" {
			verr.AddError(fmt.Sprintf("persona %q: instructions are required", name))
			continue
		}
		if _, exists := r.byName[name]; exists {
			verr.AddError(fmt.Sprintf("persona %q: %v", name, ErrDuplicatePersona))
			continue
		}
		p.Name = name
		r.byName[name] = p
		r.order = append(r.order, name)
	}

	if verr.HasErrors() {
		return nil, verr
	}
	return r, nil
}

// Get returns the persona registered under name.
func (r *PersonaRegistry) Get(name string) (Persona, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// Resolve returns the personas for names in the given order, failing on the
// first unknown name.
func (r *PersonaRegistry) Resolve(names ...string) ([]Persona, error) {
	out := make([]Persona, 0, len(names))
	for _, name := range names {
		p, ok := r.byName[name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPersona, name)
		}
		out = append(out, p)
	}
	return out, nil
}

// Names returns persona names in registration order.
func (r *PersonaRegistry) Names() []string { return slices.Clone(r.order) }

// Len returns the number of registered personas.
func (r *PersonaRegistry) Len() int { return len(r.order) }
