// Package llm implements the agent invoker over hosted model providers
// (OpenAI, Anthropic, Google) with a middleware chain for rate limiting,
// circuit breaking, timeouts, metrics and tracing.
//
// Providers implement the small CoreLLM interface and register themselves
// through RegisterProviderFactory. A Client wraps a CoreLLM, applies
// middleware and adapts it to ports.AgentInvoker:
//
//	client, err := llm.NewClient("openai", llm.ClientConfig{
//	    APIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:  "gpt-4.1-mini",
//	    Middleware: []llm.Middleware{
//	        llm.TracingMiddleware("tribunal"),
//	        llm.RateLimitMiddleware(5, 5),
//	        llm.CircuitBreakerMiddleware(3, 30*time.Second),
//	    },
//	})
//	inv, err := client.Invoke(ctx, persona, conversation.Messages())
package llm

import (
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Request is a single generation request: a system prompt followed by an
// ordered conversation.
type Request struct {
	// System is sent as the provider's system instruction.
	System string

	// Messages is the conversation, oldest first.
	Messages []domain.Message

	// Options carries per-request settings such as "temperature",
	// "max_tokens" or "response_format".
	Options map[string]any
}

// Response is the text and token usage a provider returned.
type Response struct {
	Content   string
	TokensIn  int
	TokensOut int
}

// CoreLLM defines the minimal interface that providers implement. The
// middleware chain wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends the request to the provider.
	DoRequest(ctx context.Context, req Request) (Response, error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model to use for subsequent requests.
	SetModel(model string)
}

// TokenEstimator estimates token counts when a provider does not report
// usage.
type TokenEstimator interface {
	EstimateTokens(text string) int
}

// ClientConfig holds all configuration options for creating a Client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model specifies which model to use for requests.
	Model string

	// BaseURL overrides the provider's default endpoint.
	BaseURL string

	// Timeout bounds the provider's HTTP client. Zero means no timeout.
	Timeout time.Duration

	// TokenEstimator is used for prompt-size estimates. If nil, a
	// character-based estimator is used.
	TokenEstimator TokenEstimator

	// Options are sent with every request unless overridden.
	Options map[string]any

	// Middleware wraps the provider. The first entry is the outermost.
	Middleware []Middleware
}

// Middleware wraps a CoreLLM implementation to add cross-cutting behaviour.
type Middleware func(CoreLLM) CoreLLM

// Client adapts a CoreLLM to ports.AgentInvoker.
type Client struct {
	core      CoreLLM
	provider  string
	estimator TokenEstimator
	options   map[string]any
}

var _ ports.AgentInvoker = (*Client)(nil)

// NewClient creates a Client for the named provider, assembling the
// middleware chain around it.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	if config.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}

	return newClientFromCore(providerType, core, config), nil
}

// NewClientFromCore builds a Client around an existing CoreLLM. It is used
// by tests and by callers that bring their own provider.
func NewClientFromCore(core CoreLLM, config ClientConfig) *Client {
	return newClientFromCore("custom", core, config)
}

func newClientFromCore(provider string, core CoreLLM, config ClientConfig) *Client {
	// Apply middleware in reverse order so the first middleware is the outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	estimator := config.TokenEstimator
	if estimator == nil {
		estimator = NewCharacterBasedTokenEstimator(0)
	}

	return &Client{
		core:      core,
		provider:  provider,
		estimator: estimator,
		options:   maps.Clone(config.Options),
	}
}

// WithOptions returns a client sharing this client's provider and
// middleware whose requests carry opts merged over the current options.
func (c *Client) WithOptions(opts map[string]any) *Client {
	merged := maps.Clone(c.options)
	if merged == nil {
		merged = make(map[string]any, len(opts))
	}
	maps.Copy(merged, opts)

	clone := *c
	clone.options = merged
	return &clone
}

// Invoke sends messages to the provider with the persona's instructions as
// the system prompt. Failures are returned as *ports.InvocationError.
func (c *Client) Invoke(ctx context.Context, persona domain.Persona, messages []domain.Message) (ports.Invocation, error) {
	start := time.Now()
	resp, err := c.core.DoRequest(ctx, Request{
		System:   persona.Instructions,
		Messages: messages,
		Options:  c.options,
	})
	latency := time.Since(start)

	if err != nil {
		ierr := ports.NewInvocationError(persona.Name, c.core.GetModel(), err)
		if ierr.Latency == 0 {
			ierr.Latency = latency
		}
		return ports.Invocation{}, ierr
	}

	return ports.Invocation{
		Content: resp.Content,
		Usage:   domain.NewUsage(resp.TokensIn, resp.TokensOut),
		Latency: latency,
	}, nil
}

// EstimateTokens returns an approximate prompt size for a persona and
// conversation.
func (c *Client) EstimateTokens(persona domain.Persona, messages []domain.Message) int {
	return c.estimator.EstimateTokens(flattenRequest(persona.Instructions, messages))
}

// GetModel returns the model name from the underlying provider.
func (c *Client) GetModel() string { return c.core.GetModel() }

// Provider returns the provider type the client was built for.
func (c *Client) Provider() string { return c.provider }

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a provider under providerType. It is
// intended to be called from init functions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}

// GetProviderFactory retrieves a registered provider factory.
func GetProviderFactory(name string) (ProviderFactory, bool) {
	factory, exists := providerFactories[name]
	return factory, exists
}
