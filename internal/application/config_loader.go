package application

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// ConfigLoader decodes and validates tribunal configuration files.
type ConfigLoader struct {
	validator *validator.Validate
}

// NewConfigLoader returns a loader with the custom validators registered.
func NewConfigLoader() (*ConfigLoader, error) {
	v := validator.New()
	if err := RegisterConfigValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}
	return &ConfigLoader{validator: v}, nil
}

// LoadFromFile reads path and decodes it over DefaultConfig. A missing file
// is reported as ports.ErrConfigNotFound.
func (cl *ConfigLoader) LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, ports.NewConfigError(path, ports.ErrConfigNotFound)
		}
		return Config{}, fmt.Errorf("failed to read file: %w", err)
	}
	return cl.Load(data)
}

// LoadFromReader decodes everything read from r over DefaultConfig.
func (cl *ConfigLoader) LoadFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read data: %w", err)
	}
	return cl.Load(data)
}

// Load decodes YAML data over DefaultConfig and validates the result.
// Unknown fields are rejected. Empty input yields the defaults.
func (cl *ConfigLoader) Load(data []byte) (Config, error) {
	cfg := DefaultConfig()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("YAML decode failed: %w", err)
	}

	if err := cl.Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs struct-tag validation followed by the semantic checks that
// tags cannot express.
func (cl *ConfigLoader) Validate(cfg Config) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return fmt.Errorf("struct validation failed: %w", err)
	}

	if err := validateSemantics(cfg); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}

	return nil
}

// validateSemantics checks persona uniqueness, that the jury does not also
// sit on the panel and that rate limiting has a usable burst.
func validateSemantics(cfg Config) error {
	seen := make(map[string]struct{}, len(cfg.Personas))
	for _, p := range cfg.Personas {
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("duplicate persona %q", p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	for _, name := range cfg.Debate.Panel {
		if name == cfg.Jury.Persona {
			return fmt.Errorf("jury persona %q cannot also sit on the debate panel", name)
		}
	}

	if cfg.LLM.RequestsPerSecond > 0 && cfg.LLM.Burst < 1 {
		return fmt.Errorf("llm.burst must be positive when llm.requests_per_second is set")
	}

	return nil
}
