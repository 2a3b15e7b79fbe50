package application

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+$`)

// RegisterConfigValidators registers the custom tags used by Config:
// semver, modelformat and personaref.
func RegisterConfigValidators(v *validator.Validate) error {
	if err := v.RegisterValidation("semver", validateSemver); err != nil {
		return fmt.Errorf("failed to register semver validator: %w", err)
	}

	if err := v.RegisterValidation("modelformat", validateModelFormat); err != nil {
		return fmt.Errorf("failed to register modelformat validator: %w", err)
	}

	if err := v.RegisterValidation("personaref", validatePersonaRef); err != nil {
		return fmt.Errorf("failed to register personaref validator: %w", err)
	}

	return nil
}

// validateSemver accepts X.Y.Z where each part is a non-negative integer.
func validateSemver(fl validator.FieldLevel) bool {
	return semverPattern.MatchString(fl.Field().String())
}

// validateModelFormat accepts "provider/model" where both parts are
// non-empty and the provider is lower-case alphanumeric.
func validateModelFormat(fl validator.FieldLevel) bool {
	model := fl.Field().String()
	if model == "" {
		return true
	}

	provider, name, ok := strings.Cut(model, "/")
	if !ok || provider == "" || name == "" {
		return false
	}

	for _, r := range provider {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

// validatePersonaRef checks that the field names a persona defined in the
// Config being validated.
func validatePersonaRef(fl validator.FieldLevel) bool {
	name := fl.Field().String()

	top := fl.Top()
	if top.Kind() == reflect.Ptr {
		top = top.Elem()
	}
	cfg, ok := top.Interface().(Config)
	if !ok {
		return false
	}

	for _, p := range cfg.Personas {
		if p.Name == name {
			return true
		}
	}
	return false
}
