package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ahrav/go-tribunal/internal/ports"
)

// Metric names recorded by MetricsMiddleware.
const (
	MetricLLMLatency  = "llm_latency_seconds"
	MetricLLMRequests = "llm_requests_total"
	MetricLLMTokens   = "llm_tokens_total"
)

type metricsLLM struct {
	next      CoreLLM
	collector ports.MetricsCollector
}

// MetricsMiddleware records request latency, request counts by status and
// token counts by direction.
func MetricsMiddleware(collector ports.MetricsCollector) Middleware {
	return func(next CoreLLM) CoreLLM {
		return &metricsLLM{next: next, collector: collector}
	}
}

// DoRequest forwards the request and records its outcome.
func (m *metricsLLM) DoRequest(ctx context.Context, req Request) (Response, error) {
	start := time.Now()
	resp, err := m.next.DoRequest(ctx, req)
	if m.collector == nil {
		return resp, err
	}

	model := m.next.GetModel()
	labels := map[string]string{
		"provider": providerForModel(model),
		"model":    model,
		"status":   requestStatus(ctx, err),
	}

	m.collector.RecordHistogram(MetricLLMLatency, time.Since(start).Seconds(), labels)
	m.collector.RecordCounter(MetricLLMRequests, 1, labels)

	if err == nil {
		in := cloneLabels(labels)
		in["token_type"] = "input"
		m.collector.RecordCounter(MetricLLMTokens, float64(resp.TokensIn), in)

		out := cloneLabels(labels)
		out["token_type"] = "output"
		m.collector.RecordCounter(MetricLLMTokens, float64(resp.TokensOut), out)
	}

	return resp, err
}

func (m *metricsLLM) GetModel() string      { return m.next.GetModel() }
func (m *metricsLLM) SetModel(model string) { m.next.SetModel(model) }

func requestStatus(ctx context.Context, err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrCircuitOpen):
		return "circuit_open"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}

// providerForModel guesses the provider family from a model name.
func providerForModel(model string) string {
	switch {
	case strings.HasPrefix(model, "gpt"), strings.HasPrefix(model, "o1"), strings.HasPrefix(model, "o3"), strings.HasPrefix(model, "o4"):
		return "openai"
	case strings.Contains(model, "claude"):
		return "anthropic"
	case strings.Contains(model, "gemini"):
		return "google"
	default:
		return "unknown"
	}
}

func cloneLabels(labels map[string]string) map[string]string {
	out := make(map[string]string, len(labels)+1)
	for k, v := range labels {
		out[k] = v
	}
	return out
}
