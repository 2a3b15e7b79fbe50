package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsMiddleware_Success(t *testing.T) {
	collector := newMockMetricsCollector()
	mock := NewMockCoreLLM()
	mock.Model = "gpt-4.1-mini"
	mock.TokensIn = 100
	mock.TokensOut = 25

	core := MetricsMiddleware(collector)(mock)
	_, err := core.DoRequest(context.Background(), Request{})
	require.NoError(t, err)

	assert.Equal(t, 1.0, collector.counters[MetricLLMRequests+":openai"])
	assert.Equal(t, 125.0, collector.counters[MetricLLMTokens+":openai"])
	assert.Contains(t, collector.histograms, MetricLLMLatency+":openai")

	require.Len(t, collector.labels[MetricLLMRequests], 1)
	assert.Equal(t, "success", collector.labels[MetricLLMRequests][0]["status"])

	tokenLabels := collector.labels[MetricLLMTokens]
	require.Len(t, tokenLabels, 2)
	assert.Equal(t, "input", tokenLabels[0]["token_type"])
	assert.Equal(t, "output", tokenLabels[1]["token_type"])
	assert.NotContains(t, collector.labels[MetricLLMRequests][0], "token_type")
}

func TestMetricsMiddleware_Status(t *testing.T) {
	tests := []struct {
		name   string
		setup  func(*MockCoreLLM)
		ctx    func() (context.Context, context.CancelFunc)
		status string
	}{
		{
			name:   "error",
			setup:  func(m *MockCoreLLM) { m.FailUntilAttempt = 1 },
			status: "error",
		},
		{
			name:   "circuit open",
			setup:  func(m *MockCoreLLM) { m.Error = ErrCircuitOpen },
			status: "circuit_open",
		},
		{
			name:  "timeout",
			setup: func(m *MockCoreLLM) { m.ResponseDelay = time.Second },
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), time.Millisecond)
			},
			status: "timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collector := newMockMetricsCollector()
			mock := NewMockCoreLLM()
			mock.Model = "claude-3-5-haiku-latest"
			tt.setup(mock)

			ctx, cancel := context.Background(), context.CancelFunc(func() {})
			if tt.ctx != nil {
				ctx, cancel = tt.ctx()
			}
			defer cancel()

			_, err := MetricsMiddleware(collector)(mock).DoRequest(ctx, Request{})
			require.Error(t, err)

			require.Len(t, collector.labels[MetricLLMRequests], 1)
			assert.Equal(t, tt.status, collector.labels[MetricLLMRequests][0]["status"])
			assert.Equal(t, "anthropic", collector.labels[MetricLLMRequests][0]["provider"])
			assert.Empty(t, collector.labels[MetricLLMTokens])
		})
	}
}

func TestMetricsMiddleware_NilCollector(t *testing.T) {
	core := MetricsMiddleware(nil)(NewMockCoreLLM())
	_, err := core.DoRequest(context.Background(), Request{})
	assert.NoError(t, err)
}

func TestProviderForModel(t *testing.T) {
	assert.Equal(t, "openai", providerForModel("gpt-4.1-mini"))
	assert.Equal(t, "openai", providerForModel("o3-mini"))
	assert.Equal(t, "anthropic", providerForModel("claude-3-5-haiku-latest"))
	assert.Equal(t, "google", providerForModel("gemini-2.5-flash"))
	assert.Equal(t, "unknown", providerForModel("llama"))
}
