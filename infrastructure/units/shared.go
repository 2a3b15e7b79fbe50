// Package units contains the verdict side of a debate: the Jury that turns a
// transcript into a domain.Verdict, its prompt templates and the lenient
// parsing of its output.
package units

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
)

// Errors returned when constructing units.
var (
	// ErrNilInvoker is returned when a unit is built without an invoker.
	ErrNilInvoker = errors.New("agent invoker cannot be nil")

	// ErrMissingPersona is returned when a unit's persona has no
	// instructions.
	ErrMissingPersona = errors.New("persona instructions are required")
)

// Package-level validator for configuration and response structs.
var validate = validator.New()

// wallClock is the default Jury clock.
type wallClock struct{}

func (wallClock) Now() time.Time                  { return time.Now() }
func (wallClock) Since(t time.Time) time.Duration { return time.Since(t) }
