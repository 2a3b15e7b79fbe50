package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// mockMetricsCollector records metrics keyed by "name:provider".
type mockMetricsCollector struct {
	mu         sync.Mutex
	histograms map[string]float64
	counters   map[string]float64
	gauges     map[string]float64
	labels     map[string][]map[string]string
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		histograms: make(map[string]float64),
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		labels:     make(map[string][]map[string]string),
	}
}

func (m *mockMetricsCollector) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	m.RecordHistogram(operation, duration.Seconds(), labels)
}

func (m *mockMetricsCollector) RecordCounter(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counters[fmt.Sprintf("%s:%s", metric, labels["provider"])] += value
	m.labels[metric] = append(m.labels[metric], labels)
}

func (m *mockMetricsCollector) RecordGauge(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gauges[fmt.Sprintf("%s:%s", metric, labels["provider"])] = value
}

func (m *mockMetricsCollector) RecordHistogram(metric string, value float64, labels map[string]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.histograms[fmt.Sprintf("%s:%s", metric, labels["provider"])] = value
	m.labels[metric] = append(m.labels[metric], labels)
}

var _ ports.MetricsCollector = (*mockMetricsCollector)(nil)

func TestNewClient(t *testing.T) {
	tests := []struct {
		name        string
		provider    string
		config      ClientConfig
		expectError error
		errContains string
	}{
		{
			name:     "valid openai client",
			provider: "openai",
			config:   ClientConfig{APIKey: "test-api-key", Model: "gpt-4.1-mini"},
		},
		{
			name:     "valid anthropic client",
			provider: "anthropic",
			config:   ClientConfig{APIKey: "test-api-key", Model: AnthropicDefaultModel},
		},
		{
			name:     "valid google client",
			provider: "google",
			config:   ClientConfig{APIKey: "test-api-key", Model: GoogleDefaultModel},
		},
		{
			name:        "missing api key",
			provider:    "openai",
			config:      ClientConfig{Model: "gpt-4.1-mini"},
			expectError: ErrEmptyAPIKey,
		},
		{
			name:        "missing model",
			provider:    "openai",
			config:      ClientConfig{APIKey: "test-api-key"},
			errContains: "model is required",
		},
		{
			name:        "unknown provider",
			provider:    "oracle",
			config:      ClientConfig{APIKey: "test-api-key", Model: "m"},
			errContains: "unknown provider",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.provider, tt.config)
			switch {
			case tt.expectError != nil:
				assert.ErrorIs(t, err, tt.expectError)
				assert.Nil(t, client)
			case tt.errContains != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.config.Model, client.GetModel())
				assert.Equal(t, tt.provider, client.Provider())
			}
		})
	}
}

func TestClient_Invoke(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Response = "The claim overstates the fact."
	mock.TokensIn = 120
	mock.TokensOut = 30

	client := NewClientFromCore(mock, ClientConfig{})
	persona := domain.Persona{Name: domain.PersonaSceptic, Instructions: "Find flaws."}

	conv := domain.Seed("fact", "claim")

	inv, err := client.Invoke(context.Background(), persona, conv.Messages())
	require.NoError(t, err)

	assert.Equal(t, "The claim overstates the fact.", inv.Content)
	assert.Equal(t, domain.NewUsage(120, 30), inv.Usage)
	assert.GreaterOrEqual(t, inv.Latency, time.Duration(0))

	assert.Equal(t, "Find flaws.", mock.LastRequest.System)
	assert.Equal(t, conv.Messages(), mock.LastRequest.Messages)
}

func TestClient_Invoke_WrapsErrors(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Error = NewProviderError("openai", ErrorTypeRateLimit, 429, "slow down", nil)
	mock.Model = "gpt-4.1-mini"

	client := NewClientFromCore(mock, ClientConfig{})
	_, err := client.Invoke(context.Background(), domain.Persona{Name: domain.PersonaDefender, Instructions: "x"}, nil)
	require.Error(t, err)

	var ierr *ports.InvocationError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, domain.PersonaDefender, ierr.Persona)
	assert.Equal(t, "gpt-4.1-mini", ierr.Model)
	assert.ErrorIs(t, err, ports.ErrRateLimited)
}

func TestClient_WithOptions(t *testing.T) {
	mock := NewMockCoreLLM()
	base := NewClientFromCore(mock, ClientConfig{Options: map[string]any{"temperature": 0.2}})
	jury := base.WithOptions(map[string]any{"response_format": ResponseFormatJSON})

	_, err := jury.Invoke(context.Background(), domain.Persona{Name: domain.PersonaJury, Instructions: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"temperature": 0.2, "response_format": ResponseFormatJSON}, mock.LastRequest.Options)

	_, err = base.Invoke(context.Background(), domain.Persona{Name: domain.PersonaSceptic, Instructions: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"temperature": 0.2}, mock.LastRequest.Options, "original client must be unchanged")
	assert.Equal(t, 2, mock.GetCallCount())
}

func TestClient_MiddlewareOrder(t *testing.T) {
	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return coreFunc{next: next, fn: func(ctx context.Context, req Request) (Response, error) {
				order = append(order, name)
				return next.DoRequest(ctx, req)
			}}
		}
	}

	client := NewClientFromCore(NewMockCoreLLM(), ClientConfig{
		Middleware: []Middleware{tag("outer"), tag("inner")},
	})
	_, err := client.Invoke(context.Background(), domain.Persona{Name: "p", Instructions: "x"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestClient_EstimateTokens(t *testing.T) {
	client := NewClientFromCore(NewMockCoreLLM(), ClientConfig{
		TokenEstimator: NewWordBasedTokenEstimator(1),
	})
	messages := []domain.Message{{Role: domain.RoleUser, Content: "one two three"}}

	// "sys" + "user: one two three"
	assert.Equal(t, 5, client.EstimateTokens(domain.Persona{Instructions: "sys"}, messages))
}

// coreFunc adapts a function to CoreLLM for middleware tests.
type coreFunc struct {
	next CoreLLM
	fn   func(context.Context, Request) (Response, error)
}

func (c coreFunc) DoRequest(ctx context.Context, req Request) (Response, error) {
	return c.fn(ctx, req)
}
func (c coreFunc) GetModel() string  { return c.next.GetModel() }
func (c coreFunc) SetModel(m string) { c.next.SetModel(m) }
