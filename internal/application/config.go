package application

import (
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// Incremental failure policies.
const (
	// FailurePolicyAbort stops the session at the first failed segment and
	// returns the error.
	FailurePolicyAbort = "abort"

	// FailurePolicySkip records the failure and moves to the next segment.
	FailurePolicySkip = "skip"
)

// Defaults applied by DefaultConfig.
const (
	DefaultVersion          = "1.0.0"
	DefaultModel            = "openai/gpt-4.1-mini"
	DefaultDebateDuration   = 15 * time.Second
	DefaultInputPerMillion  = 0.40
	DefaultOutputPerMillion = 1.60
	DefaultRequestTimeout   = 60 * time.Second
)

// Config is the complete configuration of a tribunal run. It is decoded
// from YAML on top of DefaultConfig, so omitted sections keep their
// defaults.
type Config struct {
	// Version is the configuration schema version.
	Version string `yaml:"version" validate:"required,semver"`

	// Model is the default "provider/model" spec for every persona.
	Model string `yaml:"model" validate:"required,modelformat"`

	// Personas defines every persona that may be referenced by the panel or
	// the jury. Names must be unique.
	Personas []PersonaConfig `yaml:"personas" validate:"required,min=1,dive"`

	// Debate configures the time-boxed full mode and the panel used by both
	// modes.
	Debate DebateConfig `yaml:"debate"`

	// Incremental configures the staged per-segment mode.
	Incremental IncrementalConfig `yaml:"incremental"`

	// Jury configures the verdict persona and its prompts.
	Jury JuryConfig `yaml:"jury"`

	// Pricing converts token usage into cost.
	Pricing PricingConfig `yaml:"pricing"`

	// Budget bounds a session's consumption. Zero values disable a limit.
	Budget BudgetConfig `yaml:"budget"`

	// LLM configures provider clients and their middleware.
	LLM LLMConfig `yaml:"llm"`

	// Logging configures the process logger.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `yaml:"metrics"`
}

// PersonaConfig defines one persona.
type PersonaConfig struct {
	Name         string `yaml:"name" validate:"required,min=1,max=64"`
	Instructions string `yaml:"instructions" validate:"required,min=1"`
	// Model overrides Config.Model for this persona.
	Model string `yaml:"model,omitempty" validate:"omitempty,modelformat"`
}

// DebateConfig configures the debating panel.
type DebateConfig struct {
	// Duration is the wall-clock budget of a full-mode debate. Zero means no
	// rounds are run.
	Duration time.Duration `yaml:"duration" validate:"min=0"`

	// Panel lists the debating personas in turn order.
	Panel []string `yaml:"panel" validate:"required,min=1,dive,personaref"`
}

// IncrementalConfig configures the staged mode.
type IncrementalConfig struct {
	// FailurePolicy is FailurePolicyAbort or FailurePolicySkip.
	FailurePolicy string `yaml:"failure_policy" validate:"required,oneof=abort skip"`
}

// JuryConfig configures the verdict persona.
type JuryConfig struct {
	// Persona names the persona that renders verdicts.
	Persona string `yaml:"persona" validate:"required,personaref"`

	// RequestJSON asks the model for a JSON object, using the provider's
	// JSON response mode where available.
	RequestJSON bool `yaml:"request_json"`

	// LabelTolerance is the edit distance accepted when matching labels.
	LabelTolerance int `yaml:"label_tolerance" validate:"min=0,max=3"`

	// FullPrompt and SegmentPrompt override the stock prompt templates.
	FullPrompt    string `yaml:"full_prompt,omitempty"`
	SegmentPrompt string `yaml:"segment_prompt,omitempty"`
}

// PricingConfig holds per-million-token rates.
type PricingConfig struct {
	InputPerMillion  float64 `yaml:"input_per_million" validate:"min=0"`
	OutputPerMillion float64 `yaml:"output_per_million" validate:"min=0"`
}

// Pricing returns the domain pricing.
func (p PricingConfig) Pricing() domain.Pricing {
	return domain.Pricing{InputPerMillion: p.InputPerMillion, OutputPerMillion: p.OutputPerMillion}
}

// BudgetConfig bounds a session's consumption.
type BudgetConfig struct {
	MaxCost   float64 `yaml:"max_cost" validate:"min=0,max=10000"`
	MaxTokens int64   `yaml:"max_tokens" validate:"min=0"`
	MaxCalls  int64   `yaml:"max_calls" validate:"min=0,max=10000"`
}

// Enabled reports whether any limit is set.
func (b BudgetConfig) Enabled() bool {
	return b.MaxCost > 0 || b.MaxTokens > 0 || b.MaxCalls > 0
}

// LLMConfig configures provider clients.
type LLMConfig struct {
	// RequestTimeout bounds each provider call. Zero disables it.
	RequestTimeout time.Duration `yaml:"request_timeout" validate:"min=0"`

	// RequestsPerSecond rate-limits provider calls. Zero disables it.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`

	// Burst is the rate limiter's bucket size.
	Burst int `yaml:"burst" validate:"min=0"`

	// CircuitBreaker trips after consecutive provider failures.
	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`

	// TokenEstimator selects "characters" or "words".
	TokenEstimator string `yaml:"token_estimator" validate:"omitempty,oneof=characters words"`
}

// CircuitBreakerConfig configures the circuit breaker. MaxFailures of zero
// disables it.
type CircuitBreakerConfig struct {
	MaxFailures int           `yaml:"max_failures" validate:"min=0"`
	Cooldown    time.Duration `yaml:"cooldown" validate:"min=0"`
}

// LoggingConfig configures the slog logger.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// MetricsConfig configures the metrics endpoint. An empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// DefaultConfig returns the stock configuration: the three default
// personas, a Sceptic/Defender panel, a 15 second debate and gpt-4.1-mini
// pricing.
func DefaultConfig() Config {
	defaults := domain.DefaultPersonas()
	personas := make([]PersonaConfig, len(defaults))
	for i, p := range defaults {
		personas[i] = PersonaConfig{Name: p.Name, Instructions: p.Instructions}
	}

	return Config{
		Version:  DefaultVersion,
		Model:    DefaultModel,
		Personas: personas,
		Debate: DebateConfig{
			Duration: DefaultDebateDuration,
			Panel:    []string{domain.PersonaSceptic, domain.PersonaDefender},
		},
		Incremental: IncrementalConfig{FailurePolicy: FailurePolicyAbort},
		Jury: JuryConfig{
			Persona:        domain.PersonaJury,
			RequestJSON:    true,
			LabelTolerance: 2,
		},
		Pricing: PricingConfig{
			InputPerMillion:  DefaultInputPerMillion,
			OutputPerMillion: DefaultOutputPerMillion,
		},
		LLM: LLMConfig{
			RequestTimeout: DefaultRequestTimeout,
			TokenEstimator: "characters",
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// PersonaRegistry builds the registry of configured personas.
func (c Config) PersonaRegistry() (*domain.PersonaRegistry, error) {
	personas := make([]domain.Persona, len(c.Personas))
	for i, p := range c.Personas {
		personas[i] = domain.Persona{Name: p.Name, Instructions: p.Instructions}
	}
	return domain.NewPersonaRegistry(personas...)
}

// ModelFor returns the model spec used by the named persona.
func (c Config) ModelFor(persona string) string {
	for _, p := range c.Personas {
		if p.Name == persona && p.Model != "" {
			return p.Model
		}
	}
	return c.Model
}
