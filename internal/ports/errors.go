package ports

import (
	"errors"
	"fmt"
	"time"
)

// Common infrastructure errors that can occur during backend interactions.
var (
	// ErrTokenLimitExceeded indicates that the model's token limit was exceeded.
	ErrTokenLimitExceeded = errors.New("token limit exceeded")

	// ErrRateLimited indicates that the request was rate limited.
	ErrRateLimited = errors.New("rate limited")

	// ErrServiceUnavailable indicates that the backend is unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidResponse indicates that the backend returned an unusable
	// response.
	ErrInvalidResponse = errors.New("invalid response")

	// ErrAuthenticationFailed indicates that authentication with the
	// backend failed.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrConfigNotFound indicates that required configuration is missing.
	ErrConfigNotFound = errors.New("configuration not found")
)

// InvocationError is the single error kind returned by an AgentInvoker.
// It records which persona and model were involved and wraps the cause.
type InvocationError struct {
	// Persona is the persona on whose behalf the call was made.
	Persona string

	// Model is the backend model identifier.
	Model string

	// Err is the underlying error.
	Err error

	// Latency is how long the call ran before failing.
	Latency time.Duration
}

// Error implements the error interface for InvocationError.
func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("invocation error: persona=%s, model=%s, err=%v", e.Persona, e.Model, e.Err)
	if e.Latency > 0 {
		msg += fmt.Sprintf(", latency=%v", e.Latency)
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *InvocationError) Unwrap() error { return e.Err }

// NewInvocationError creates a new InvocationError. An error that already is
// an *InvocationError is returned unchanged so decorators can wrap freely.
func NewInvocationError(persona, model string, err error) *InvocationError {
	var ie *InvocationError
	if errors.As(err, &ie) {
		return ie
	}
	return &InvocationError{
		Persona: persona,
		Model:   model,
		Err:     err,
	}
}

// MetricsError represents an error from metrics collection operations.
type MetricsError struct {
	// Metric is the name of the metric being collected.
	Metric string

	// Operation is the name of the metrics operation that failed.
	Operation string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for MetricsError.
func (e *MetricsError) Error() string {
	return fmt.Sprintf("metrics error: operation=%s, metric=%s, err=%v", e.Operation, e.Metric, e.Err)
}

// Unwrap returns the underlying error.
func (e *MetricsError) Unwrap() error { return e.Err }

// NewMetricsError creates a new MetricsError with the given details.
func NewMetricsError(metric, operation string, err error) *MetricsError {
	return &MetricsError{
		Metric:    metric,
		Operation: operation,
		Err:       err,
	}
}

// ConfigError represents an error from configuration operations.
type ConfigError struct {
	// ConfigKey is the configuration key involved.
	ConfigKey string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface for ConfigError.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: key=%s, err=%v", e.ConfigKey, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a new ConfigError with the given details.
func NewConfigError(key string, err error) *ConfigError {
	return &ConfigError{
		ConfigKey: key,
		Err:       err,
	}
}
