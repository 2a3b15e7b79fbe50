package middleware

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-tribunal/internal/domain"
)

func TestOTelBudgetObserver_SuccessRecordsGauges(t *testing.T) {
	c := &recordingCollector{}
	obs := NewOTelBudgetObserver(c, "session-1")
	budget := Budget{MaxCalls: 4, MaxTokens: 1000}
	usage := BudgetUsage{Calls: 1, Tokens: 250, Cost: 0.001}

	ctx := obs.PreCheck(context.Background(), domain.PersonaSceptic, BudgetUsage{}, budget)
	require.NotNil(t, ctx)
	obs.PostCheck(ctx, domain.PersonaSceptic, usage, budget, 10*time.Millisecond, nil)

	require.Len(t, c.latencies, 1)
	assert.Equal(t, MetricBudgetLatency, c.latencies[0].name)
	assert.Equal(t, "tokens_and_calls", c.latencies[0].labels["budget_limit"])

	remaining := map[string]float64{}
	for _, g := range c.gauges {
		if g.name == MetricBudgetRemaining {
			remaining[g.labels["resource"]] = g.value
		}
	}
	assert.Equal(t, map[string]float64{"calls": 3, "tokens": 750}, remaining)
}

func TestOTelBudgetObserver_BudgetExceeded(t *testing.T) {
	c := &recordingCollector{}
	obs := NewOTelBudgetObserver(c, "session-1")
	budget := Budget{MaxCalls: 1}
	usage := BudgetUsage{Calls: 1}

	ctx := obs.PreCheck(context.Background(), domain.PersonaDefender, usage, budget)
	err := domain.NewBudgetExceededError("calls", 1, 1, domain.PersonaDefender)
	obs.PostCheck(ctx, domain.PersonaDefender, usage, budget, 0, fmt.Errorf("wrapped: %w", err))

	exceeded := c.counter(MetricBudgetExceeded)
	require.Len(t, exceeded, 1)
	assert.Equal(t, "calls", exceeded[0].labels["limit_type"])
	assert.Equal(t, domain.PersonaDefender, exceeded[0].labels["persona"])
	assert.Empty(t, c.latencies, "refusals have no latency")
	assert.Empty(t, c.gauges)
}

func TestOTelBudgetObserver_OtherErrorRecordsNoMetrics(t *testing.T) {
	c := &recordingCollector{}
	obs := NewOTelBudgetObserver(c, "session-1")

	ctx := obs.PreCheck(context.Background(), domain.PersonaJury, BudgetUsage{}, Budget{})
	obs.PostCheck(ctx, domain.PersonaJury, BudgetUsage{Calls: 1}, Budget{}, time.Millisecond, errors.New("boom"))

	assert.Empty(t, c.counters)
	assert.Empty(t, c.gauges)
	assert.Len(t, c.latencies, 1)
}

func TestOTelBudgetObserver_NilMetrics(t *testing.T) {
	obs := NewOTelBudgetObserver(nil, "session-1")
	assert.NotPanics(t, func() {
		ctx := obs.PreCheck(context.Background(), "Sceptic", BudgetUsage{Calls: 9}, Budget{MaxCalls: 10})
		obs.PostCheck(ctx, "Sceptic", BudgetUsage{Calls: 10}, Budget{MaxCalls: 10}, time.Millisecond, nil)
	})
}

func TestBudgetFractions(t *testing.T) {
	budget := Budget{MaxCost: 2, MaxTokens: 100, MaxCalls: 10}
	usage := BudgetUsage{Cost: 1, Tokens: 85, Calls: 9}

	got := budgetFractions(usage, budget)
	assert.InDelta(t, 0.5, got["cost"], 1e-9)
	assert.InDelta(t, 0.85, got["tokens"], 1e-9)
	assert.InDelta(t, 0.9, got["calls"], 1e-9)

	assert.Empty(t, budgetFractions(usage, Budget{}))
}

func TestBudgetLimitLabel(t *testing.T) {
	tests := []struct {
		budget Budget
		want   string
	}{
		{Budget{}, "unlimited"},
		{Budget{MaxCalls: 1}, "calls"},
		{Budget{MaxTokens: 1, MaxCalls: 1}, "tokens_and_calls"},
		{Budget{MaxCost: 1, MaxTokens: 1, MaxCalls: 1}, "cost_and_tokens_and_calls"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, budgetLimitLabel(tt.budget))
		})
	}
}
