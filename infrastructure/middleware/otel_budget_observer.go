package middleware

import (
	"context"
	"errors"
	"maps"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Metric names recorded by OTelBudgetObserver.
const (
	MetricBudgetExceeded  = "budget_exceeded_total"
	MetricBudgetRemaining = "budget_remaining"
	MetricBudgetUsed      = "budget_used"
	MetricBudgetLatency   = "budget_invocation"
)

// Usage fractions at which span events are raised.
const (
	budgetWarningThreshold  = 0.8
	budgetCriticalThreshold = 0.9
)

var _ BudgetObserver = (*OTelBudgetObserver)(nil)

// OTelBudgetObserver traces budget checks with OpenTelemetry and reports
// budget consumption to a metrics collector. Each invocation gets its own
// span carried on the context, so one observer can serve concurrent calls.
type OTelBudgetObserver struct {
	metrics   ports.MetricsCollector
	sessionID string
	tracer    trace.Tracer
}

// NewOTelBudgetObserver creates an observer for one session. metrics may be
// nil.
func NewOTelBudgetObserver(metrics ports.MetricsCollector, sessionID string) *OTelBudgetObserver {
	return &OTelBudgetObserver{
		metrics:   metrics,
		sessionID: sessionID,
		tracer:    otel.Tracer("tribunal/budget"),
	}
}

// PreCheck starts a span for the invocation and records threshold events.
func (o *OTelBudgetObserver) PreCheck(ctx context.Context, persona string, usage BudgetUsage, budget Budget) context.Context {
	ctx, span := o.tracer.Start(ctx, "BudgetManager.Invoke", trace.WithAttributes(
		attribute.String("tribunal.session_id", o.sessionID),
		attribute.String("tribunal.persona", persona),
	))

	setBudgetAttributes(span, usage, budget)
	checkBudgetThresholds(span, usage, budget)
	return ctx
}

// PostCheck ends the span started by PreCheck and records metrics.
func (o *OTelBudgetObserver) PostCheck(ctx context.Context, persona string, usage BudgetUsage, budget Budget, elapsed time.Duration, err error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()

	setBudgetAttributes(span, usage, budget)
	labels := o.labels(persona, budget)

	if o.metrics != nil && elapsed > 0 {
		o.metrics.RecordLatency(MetricBudgetLatency, elapsed, labels)
	}

	if err != nil {
		var budgetErr *domain.BudgetExceededError
		if errors.As(err, &budgetErr) {
			span.AddEvent("budget.exceeded", trace.WithAttributes(
				attribute.String("limit_type", budgetErr.LimitType),
				attribute.Float64("limit_value", budgetErr.Limit),
				attribute.Float64("used_value", budgetErr.Used),
			))
			span.SetStatus(codes.Error, "budget limit exceeded")

			if o.metrics != nil {
				exceeded := maps.Clone(labels)
				exceeded["limit_type"] = budgetErr.LimitType
				o.metrics.RecordCounter(MetricBudgetExceeded, 1, exceeded)
			}
			return
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.AddEvent("budget.usage_tracked", trace.WithAttributes(
		attribute.Int64("tokens_consumed", usage.Tokens),
		attribute.Int64("calls_made", usage.Calls),
		attribute.Float64("cost", float64(usage.Cost)),
	))

	o.updateMetrics(labels, usage, budget)
	span.SetStatus(codes.Ok, "")
}

func setBudgetAttributes(span trace.Span, usage BudgetUsage, budget Budget) {
	span.SetAttributes(
		attribute.Int64("budget.tokens_used", usage.Tokens),
		attribute.Int64("budget.calls_made", usage.Calls),
		attribute.Float64("budget.cost", float64(usage.Cost)),
	)

	if budget.MaxTokens > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_tokens", budget.MaxTokens),
			attribute.Int64("budget.remaining_tokens", budget.MaxTokens-usage.Tokens),
		)
	}

	if budget.MaxCalls > 0 {
		span.SetAttributes(
			attribute.Int64("budget.max_calls", budget.MaxCalls),
			attribute.Int64("budget.remaining_calls", budget.MaxCalls-usage.Calls),
		)
	}

	if budget.MaxCost > 0 {
		span.SetAttributes(
			attribute.Float64("budget.max_cost", float64(budget.MaxCost)),
			attribute.Float64("budget.remaining_cost", float64(budget.MaxCost-usage.Cost)),
		)
	}
}

func checkBudgetThresholds(span trace.Span, usage BudgetUsage, budget Budget) {
	for resource, fraction := range budgetFractions(usage, budget) {
		var event string
		switch {
		case fraction >= budgetCriticalThreshold:
			event = "budget.threshold.critical"
		case fraction >= budgetWarningThreshold:
			event = "budget.threshold.warning"
		default:
			continue
		}
		span.AddEvent(event, trace.WithAttributes(
			attribute.String("resource_type", resource),
			attribute.Float64("usage_percentage", fraction*100),
		))
	}
}

// budgetFractions returns the consumed share of each limited resource.
func budgetFractions(usage BudgetUsage, budget Budget) map[string]float64 {
	fractions := make(map[string]float64, 3)
	if budget.MaxTokens > 0 {
		fractions["tokens"] = float64(usage.Tokens) / float64(budget.MaxTokens)
	}
	if budget.MaxCalls > 0 {
		fractions["calls"] = float64(usage.Calls) / float64(budget.MaxCalls)
	}
	if budget.MaxCost > 0 {
		fractions["cost"] = float64(usage.Cost) / float64(budget.MaxCost)
	}
	return fractions
}

func (o *OTelBudgetObserver) updateMetrics(labels map[string]string, usage BudgetUsage, budget Budget) {
	if o.metrics == nil {
		return
	}

	used := map[string]float64{
		"tokens": float64(usage.Tokens),
		"calls":  float64(usage.Calls),
		"cost":   float64(usage.Cost),
	}
	for resource, value := range used {
		l := maps.Clone(labels)
		l["resource"] = resource
		o.metrics.RecordGauge(MetricBudgetUsed, value, l)
	}

	remaining := map[string]float64{}
	if budget.MaxTokens > 0 {
		remaining["tokens"] = float64(budget.MaxTokens - usage.Tokens)
	}
	if budget.MaxCalls > 0 {
		remaining["calls"] = float64(budget.MaxCalls - usage.Calls)
	}
	if budget.MaxCost > 0 {
		remaining["cost"] = float64(budget.MaxCost - usage.Cost)
	}
	for resource, value := range remaining {
		l := maps.Clone(labels)
		l["resource"] = resource
		o.metrics.RecordGauge(MetricBudgetRemaining, value, l)
	}
}

func (o *OTelBudgetObserver) labels(persona string, budget Budget) map[string]string {
	return map[string]string{
		"persona":      persona,
		"budget_limit": budgetLimitLabel(budget),
	}
}

// budgetLimitLabel names which limits are configured.
func budgetLimitLabel(budget Budget) string {
	var parts []string
	if budget.MaxCost > 0 {
		parts = append(parts, "cost")
	}
	if budget.MaxTokens > 0 {
		parts = append(parts, "tokens")
	}
	if budget.MaxCalls > 0 {
		parts = append(parts, "calls")
	}
	if len(parts) == 0 {
		return "unlimited"
	}
	return strings.Join(parts, "_and_")
}
