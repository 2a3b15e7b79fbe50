package main

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ahrav/go-tribunal/infrastructure/llm"
	"github.com/ahrav/go-tribunal/internal/application"
	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

const serviceName = "tribunal"

// clientSource hands out provider clients by "provider/model" spec.
type clientSource interface {
	GetClient(spec string) (*llm.Client, error)
}

// newLLMRegistry builds the provider registry with the configured
// middleware chain. API keys are read from the environment on first use.
func newLLMRegistry(cfg application.Config, metrics ports.MetricsCollector) (*llm.Registry, error) {
	estimator, err := llm.NewTokenEstimator(cfg.LLM.TokenEstimator)
	if err != nil {
		return nil, err
	}

	provider, _ := llm.ParseModelSpec(cfg.Model)
	registry, err := llm.NewRegistry(llm.RegistryConfig{
		Providers:         llm.DefaultProviders,
		DefaultProvider:   provider,
		DefaultTimeout:    cfg.LLM.RequestTimeout,
		DefaultMiddleware: clientMiddleware(cfg.LLM, metrics),
		TokenEstimator:    estimator,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create llm registry: %w", err)
	}
	return registry, nil
}

// clientMiddleware assembles the provider middleware, outermost first:
// tracing, metrics, rate limiting, circuit breaking and the per-request
// timeout. Disabled stages are left out.
func clientMiddleware(cfg application.LLMConfig, metrics ports.MetricsCollector) []llm.Middleware {
	mw := []llm.Middleware{
		llm.TracingMiddleware(serviceName),
		llm.MetricsMiddleware(metrics),
	}
	if cfg.RequestsPerSecond > 0 {
		mw = append(mw, llm.RateLimitMiddleware(rate.Limit(cfg.RequestsPerSecond), cfg.Burst))
	}
	if cfg.CircuitBreaker.MaxFailures > 0 {
		mw = append(mw, llm.CircuitBreakerMiddleware(cfg.CircuitBreaker.MaxFailures, cfg.CircuitBreaker.Cooldown))
	}
	if cfg.RequestTimeout > 0 {
		mw = append(mw, llm.TimeoutMiddleware(cfg.RequestTimeout))
	}
	return mw
}

// personaInvoker routes each invocation to the client configured for the
// persona's model.
type personaInvoker struct {
	routes map[string]ports.AgentInvoker
}

var _ ports.AgentInvoker = (*personaInvoker)(nil)

// newPersonaInvoker resolves a client for every panel persona and the jury.
// The jury's client asks for JSON output when the configuration does.
func newPersonaInvoker(src clientSource, cfg application.Config, panel []domain.Persona, jury domain.Persona) (*personaInvoker, error) {
	routes := make(map[string]ports.AgentInvoker, len(panel)+1)

	for _, p := range panel {
		client, err := src.GetClient(cfg.ModelFor(p.Name))
		if err != nil {
			return nil, fmt.Errorf("client for %s: %w", p.Name, err)
		}
		routes[p.Name] = client
	}

	client, err := src.GetClient(cfg.ModelFor(jury.Name))
	if err != nil {
		return nil, fmt.Errorf("client for %s: %w", jury.Name, err)
	}
	if cfg.Jury.RequestJSON {
		client = client.WithOptions(map[string]any{"response_format": llm.ResponseFormatJSON})
	}
	routes[jury.Name] = client

	return &personaInvoker{routes: routes}, nil
}

// Invoke forwards to the persona's client.
func (p *personaInvoker) Invoke(ctx context.Context, persona domain.Persona, messages []domain.Message) (ports.Invocation, error) {
	next, ok := p.routes[persona.Name]
	if !ok {
		return ports.Invocation{}, ports.NewInvocationError(persona.Name, "",
			fmt.Errorf("%w: no client for %q", domain.ErrUnknownPersona, persona.Name))
	}
	return next.Invoke(ctx, persona, messages)
}
