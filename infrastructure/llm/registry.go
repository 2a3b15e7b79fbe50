package llm

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Registry creates and caches clients keyed by "provider/model" specs.
// API keys are read from each provider's environment variable when a client
// is first requested.
type Registry struct {
	providers         map[string]ProviderConfig
	clients           map[string]*Client
	defaultProvider   string
	defaultMiddleware []Middleware
	defaultTimeout    time.Duration
	estimator         TokenEstimator
	mu                sync.RWMutex
	group             singleflight.Group
	getenv            func(string) string
}

// ProviderConfig describes one provider the registry can build clients for.
type ProviderConfig struct {
	// Type is the registered provider factory name.
	Type string
	// EnvVar names the environment variable holding the API key.
	EnvVar string
	// DefaultModel is used when a spec names only the provider.
	DefaultModel string
	// SupportedModels restricts the accepted models. Empty allows any model.
	SupportedModels []string
	// BaseURL overrides the provider endpoint.
	BaseURL string
	// Middleware is applied inside the registry's default middleware.
	Middleware []Middleware
}

// RegistryConfig configures a Registry.
type RegistryConfig struct {
	Providers         map[string]ProviderConfig
	DefaultProvider   string
	DefaultTimeout    time.Duration
	DefaultMiddleware []Middleware
	// TokenEstimator is shared by every client. Nil selects each client's
	// default.
	TokenEstimator TokenEstimator
}

// DefaultProviders lists the built-in providers.
var DefaultProviders = map[string]ProviderConfig{
	"openai": {
		Type:         "openai",
		EnvVar:       "OPENAI_API_KEY",
		DefaultModel: OpenAIDefaultModel,
		SupportedModels: []string{
			"gpt-4.1", "gpt-4.1-mini", "gpt-4.1-nano",
			"gpt-4o", "gpt-4o-mini",
			"gpt-4", "gpt-4-turbo", "gpt-3.5-turbo",
			"o4-mini", "o3", "o3-mini", "o1", "o1-mini",
		},
	},
	"anthropic": {
		Type:         "anthropic",
		EnvVar:       "ANTHROPIC_API_KEY",
		DefaultModel: AnthropicDefaultModel,
	},
	"google": {
		Type:         "google",
		EnvVar:       "GOOGLE_API_KEY",
		DefaultModel: GoogleDefaultModel,
		SupportedModels: []string{
			"gemini-2.5-pro", "gemini-2.5-flash", "gemini-2.5-flash-lite",
			"gemini-2.0-flash", "gemini-2.0-flash-lite",
			"gemini-1.5-pro", "gemini-1.5-flash",
		},
	},
}

// NewRegistry validates config and returns an empty registry.
func NewRegistry(config RegistryConfig) (*Registry, error) {
	if config.DefaultProvider == "" {
		return nil, fmt.Errorf("default provider cannot be empty")
	}

	if _, exists := config.Providers[config.DefaultProvider]; !exists {
		return nil, fmt.Errorf("default provider %q not found in providers configuration", config.DefaultProvider)
	}

	return &Registry{
		providers:         config.Providers,
		clients:           make(map[string]*Client),
		defaultProvider:   config.DefaultProvider,
		defaultMiddleware: config.DefaultMiddleware,
		defaultTimeout:    config.DefaultTimeout,
		estimator:         config.TokenEstimator,
		getenv:            os.Getenv,
	}, nil
}

// ParseModelSpec splits "provider/model" into its parts. A spec without a
// slash is a bare provider name and model is empty.
func ParseModelSpec(spec string) (provider, model string) {
	provider, model, _ = strings.Cut(spec, "/")
	return provider, model
}

// GetDefaultClient returns a client for the default provider's default model.
func (r *Registry) GetDefaultClient() (*Client, error) {
	return r.GetClient(r.defaultProvider)
}

// GetClient returns the client for spec ("provider" or "provider/model"),
// creating it on first use. Concurrent first requests for the same spec
// share one construction.
func (r *Registry) GetClient(spec string) (*Client, error) {
	if spec == "" {
		return nil, fmt.Errorf("provider specification cannot be empty; use GetDefaultClient() for default provider")
	}

	provider, model := r.resolveSpec(spec)
	key := buildCacheKey(provider, model)

	r.mu.RLock()
	client, exists := r.clients[key]
	r.mu.RUnlock()
	if exists {
		return client, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		r.mu.RLock()
		client, exists := r.clients[key]
		r.mu.RUnlock()
		if exists {
			return client, nil
		}

		client, err := r.createClient(provider, model)
		if err != nil {
			return nil, err
		}

		r.mu.Lock()
		r.clients[key] = client
		r.mu.Unlock()
		return client, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Client), nil
}

// RegisterClient registers a client built from an explicit configuration
// under spec, bypassing environment lookup.
func (r *Registry) RegisterClient(spec string, config ClientConfig) error {
	if spec == "" {
		return fmt.Errorf("client name cannot be empty")
	}

	provider, model := ParseModelSpec(spec)
	if model == "" {
		model = config.Model
	}

	providerConfig, exists := r.providers[provider]
	if !exists {
		return fmt.Errorf("unknown provider %q", provider)
	}

	if config.Timeout == 0 {
		config.Timeout = r.defaultTimeout
	}
	config.Model = model
	config.Middleware = append(r.middlewareFor(providerConfig), config.Middleware...)

	client, err := NewClient(providerConfig.Type, config)
	if err != nil {
		return fmt.Errorf("failed to create client %q: %w", spec, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[buildCacheKey(provider, model)] = client
	return nil
}

// RegisteredProviders returns the sorted names of providers with at least
// one cached client.
func (r *Registry) RegisteredProviders() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var providers []string
	for key := range r.clients {
		provider, _ := ParseModelSpec(key)
		if !slices.Contains(providers, provider) {
			providers = append(providers, provider)
		}
	}
	sort.Strings(providers)
	return providers
}

func (r *Registry) resolveSpec(spec string) (provider, model string) {
	provider, model = ParseModelSpec(spec)
	if model == "" {
		if pc, ok := r.providers[provider]; ok {
			model = pc.DefaultModel
		}
	}
	return provider, model
}

func buildCacheKey(provider, model string) string {
	if model == "" {
		return provider
	}
	return provider + "/" + model
}

func (r *Registry) createClient(provider, model string) (*Client, error) {
	providerConfig, exists := r.providers[provider]
	if !exists {
		return nil, fmt.Errorf("unknown provider %q", provider)
	}

	if len(providerConfig.SupportedModels) > 0 && !slices.Contains(providerConfig.SupportedModels, model) {
		return nil, fmt.Errorf("model %q is not supported by provider %q; supported models: %v",
			model, provider, providerConfig.SupportedModels)
	}

	apiKey := r.getenv(providerConfig.EnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable not set for provider %q", providerConfig.EnvVar, provider)
	}

	return NewClient(providerConfig.Type, ClientConfig{
		APIKey:         apiKey,
		Model:          model,
		BaseURL:        providerConfig.BaseURL,
		Timeout:        r.defaultTimeout,
		TokenEstimator: r.estimator,
		Middleware:     r.middlewareFor(providerConfig),
	})
}

func (r *Registry) middlewareFor(pc ProviderConfig) []Middleware {
	mw := make([]Middleware, 0, len(r.defaultMiddleware)+len(pc.Middleware))
	mw = append(mw, r.defaultMiddleware...)
	return append(mw, pc.Middleware...)
}
