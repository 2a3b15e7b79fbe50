package ports

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// mockMetricsCollector implements MetricsCollector interface
type mockMetricsCollector struct {
	latencies  []time.Duration
	counters   map[string]float64
	gauges     map[string]float64
	histograms map[string][]float64
}

func newMockMetricsCollector() *mockMetricsCollector {
	return &mockMetricsCollector{
		counters:   make(map[string]float64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

func (m *mockMetricsCollector) RecordLatency(_ string, d time.Duration, _ map[string]string) {
	m.latencies = append(m.latencies, d)
}

func (m *mockMetricsCollector) RecordCounter(metric string, v float64, _ map[string]string) {
	m.counters[metric] += v
}

func (m *mockMetricsCollector) RecordGauge(metric string, v float64, _ map[string]string) {
	m.gauges[metric] = v
}

func (m *mockMetricsCollector) RecordHistogram(metric string, v float64, _ map[string]string) {
	m.histograms[metric] = append(m.histograms[metric], v)
}

func TestAgentInvokerFunc(t *testing.T) {
	var got []domain.Message
	var invoker AgentInvoker = AgentInvokerFunc(func(_ context.Context, p domain.Persona, msgs []domain.Message) (Invocation, error) {
		got = msgs
		return Invocation{Content: p.Name + " says hi", Usage: domain.NewUsage(3, 4)}, nil
	})

	msgs := domain.Seed("fact", "claim").Messages()
	inv, err := invoker.Invoke(context.Background(), domain.Persona{Name: "Sceptic"}, msgs)
	require.NoError(t, err)
	assert.Equal(t, "Sceptic says hi", inv.Content)
	assert.Equal(t, 7, inv.Usage.TotalTokens)
	assert.Equal(t, msgs, got)
}

func TestEventSinkFunc(t *testing.T) {
	var kinds []domain.EventKind
	var sink EventSink = EventSinkFunc(func(e domain.Event) { kinds = append(kinds, e.Kind) })

	sink.Emit(domain.Event{Kind: domain.EventSessionStarted})
	sink.Emit(domain.Event{Kind: domain.EventSessionCompleted})

	assert.Equal(t, []domain.EventKind{domain.EventSessionStarted, domain.EventSessionCompleted}, kinds)
}

func TestMetricsCollector_Recording(t *testing.T) {
	metrics := newMockMetricsCollector()
	var _ MetricsCollector = metrics
	labels := map[string]string{"persona": "Sceptic"}

	metrics.RecordLatency("invoke", 100*time.Millisecond, labels)
	assert.Len(t, metrics.latencies, 1)

	metrics.RecordCounter("rounds", 1, labels)
	metrics.RecordCounter("rounds", 2, labels)
	assert.Equal(t, float64(3), metrics.counters["rounds"])

	metrics.RecordGauge("session_cost", 0.1, labels)
	metrics.RecordGauge("session_cost", 0.2, labels)
	assert.Equal(t, 0.2, metrics.gauges["session_cost"])

	metrics.RecordHistogram("tokens", 120, labels)
	assert.Len(t, metrics.histograms["tokens"], 1)
}

func TestInvocationError_DoesNotDoubleWrap(t *testing.T) {
	inner := NewInvocationError("Sceptic", "gpt-4.1-mini", ErrRateLimited)
	outer := NewInvocationError("Defender", "other", inner)

	assert.Same(t, inner, outer)
	assert.True(t, errors.Is(outer, ErrRateLimited))
}
