package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ahrav/go-tribunal/infrastructure/llm"
	"github.com/ahrav/go-tribunal/internal/ports"
)

const metricsNamespace = "tribunal"

const unknownLabel = "unknown"

// PrometheusMetrics implements ports.MetricsCollector using Prometheus.
// Known metric names are routed to dedicated vectors; anything else lands
// in generic vectors keyed by the metric name.
type PrometheusMetrics struct {
	llmLatency  *prometheus.HistogramVec
	llmRequests *prometheus.CounterVec
	llmTokens   *prometheus.CounterVec

	rounds       *prometheus.CounterVec
	roundLatency *prometheus.HistogramVec
	roundCost    *prometheus.HistogramVec
	verdicts     *prometheus.CounterVec
	juryOutcomes *prometheus.CounterVec
	sessions     *prometheus.CounterVec
	sessionCost  *prometheus.HistogramVec
	deadlines    *prometheus.CounterVec

	budgetExceeded  *prometheus.CounterVec
	budgetUsed      *prometheus.GaugeVec
	budgetRemaining *prometheus.GaugeVec

	operationLatency *prometheus.HistogramVec
	operationCounter *prometheus.CounterVec
	systemGauges     *prometheus.GaugeVec
	histograms       *prometheus.HistogramVec
}

var _ ports.MetricsCollector = (*PrometheusMetrics)(nil)

// NewPrometheusMetrics registers all metrics in the default registry. It
// panics if called twice in one process.
func NewPrometheusMetrics() *PrometheusMetrics {
	return NewPrometheusMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewPrometheusMetricsWithRegistry registers all metrics with reg.
func NewPrometheusMetricsWithRegistry(reg prometheus.Registerer) *PrometheusMetrics {
	factory := promauto.With(reg)
	costBuckets := prometheus.ExponentialBuckets(0.00001, 4, 10)

	return &PrometheusMetrics{
		llmLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of provider requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "model", "status"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "llm_requests_total",
			Help:      "Provider requests by outcome.",
		}, []string{"provider", "model", "status"}),
		llmTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "llm_tokens_total",
			Help:      "Tokens reported by providers.",
		}, []string{"provider", "model", "token_type"}),

		rounds: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rounds_total",
			Help:      "Debate rounds by persona and outcome.",
		}, []string{"persona", "status"}),
		roundLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "round_duration_seconds",
			Help:      "Latency of a single agent turn.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"persona"}),
		roundCost: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "round_cost_dollars",
			Help:      "Cost of a single agent turn.",
			Buckets:   costBuckets,
		}, []string{"persona"}),
		verdicts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "verdicts_total",
			Help:      "Jury verdicts by label and mode.",
		}, []string{"label", "mode"}),
		juryOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "jury_outcomes_total",
			Help:      "Jury deliberations by outcome.",
		}, []string{"outcome"}),
		sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "sessions_total",
			Help:      "Completed sessions by mode and outcome.",
		}, []string{"mode", "status"}),
		sessionCost: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "session_cost_dollars",
			Help:      "Total cost of a session.",
			Buckets:   costBuckets,
		}, []string{"mode"}),
		deadlines: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "deadlines_total",
			Help:      "Debates stopped by their time box.",
		}, []string{"mode"}),

		budgetExceeded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "budget_exceeded_total",
			Help:      "Invocations refused by the budget manager.",
		}, []string{"persona", "limit_type"}),
		budgetUsed: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "budget_used",
			Help:      "Budget consumed by the current session.",
		}, []string{"resource", "budget_limit"}),
		budgetRemaining: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "budget_remaining",
			Help:      "Budget left in the current session.",
		}, []string{"resource", "budget_limit"}),

		operationLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of other operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "operations_total",
			Help:      "Other counted operations.",
		}, []string{"metric"}),
		systemGauges: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "system_state",
			Help:      "Other gauge values.",
		}, []string{"metric"}),
		histograms: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "observations",
			Help:      "Other observed values.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"metric"}),
	}
}

// RecordLatency observes duration in seconds.
func (pm *PrometheusMetrics) RecordLatency(operation string, duration time.Duration, labels map[string]string) {
	switch operation {
	case MetricRoundLatency:
		pm.roundLatency.WithLabelValues(label(labels, "persona")).Observe(duration.Seconds())
	default:
		pm.operationLatency.WithLabelValues(operation).Observe(duration.Seconds())
	}
}

// RecordCounter adds value to the counter for metric.
func (pm *PrometheusMetrics) RecordCounter(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMRequests:
		pm.llmRequests.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Add(value)
	case llm.MetricLLMTokens:
		pm.llmTokens.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "token_type")).Add(value)
	case MetricRounds:
		pm.rounds.WithLabelValues(label(labels, "persona"), label(labels, "status")).Add(value)
	case MetricVerdicts:
		pm.verdicts.WithLabelValues(label(labels, "label"), label(labels, "mode")).Add(value)
	case MetricJuryOutcomes:
		pm.juryOutcomes.WithLabelValues(label(labels, "outcome")).Add(value)
	case MetricSessions:
		pm.sessions.WithLabelValues(label(labels, "mode"), label(labels, "status")).Add(value)
	case MetricDeadlines:
		pm.deadlines.WithLabelValues(label(labels, "mode")).Add(value)
	case MetricBudgetExceeded:
		pm.budgetExceeded.WithLabelValues(label(labels, "persona"), label(labels, "limit_type")).Add(value)
	default:
		pm.operationCounter.WithLabelValues(metric).Add(value)
	}
}

// RecordGauge sets the gauge for metric.
func (pm *PrometheusMetrics) RecordGauge(metric string, value float64, labels map[string]string) {
	switch metric {
	case MetricBudgetUsed:
		pm.budgetUsed.WithLabelValues(label(labels, "resource"), label(labels, "budget_limit")).Set(value)
	case MetricBudgetRemaining:
		pm.budgetRemaining.WithLabelValues(label(labels, "resource"), label(labels, "budget_limit")).Set(value)
	default:
		pm.systemGauges.WithLabelValues(metric).Set(value)
	}
}

// RecordHistogram observes value for metric.
func (pm *PrometheusMetrics) RecordHistogram(metric string, value float64, labels map[string]string) {
	switch metric {
	case llm.MetricLLMLatency:
		pm.llmLatency.WithLabelValues(label(labels, "provider"), label(labels, "model"), label(labels, "status")).Observe(value)
	case MetricRoundCost:
		pm.roundCost.WithLabelValues(label(labels, "persona")).Observe(value)
	case MetricSessionCost:
		pm.sessionCost.WithLabelValues(label(labels, "mode")).Observe(value)
	default:
		pm.histograms.WithLabelValues(metric).Observe(value)
	}
}

// label returns labels[key], or "unknown" when it is missing or empty.
func label(labels map[string]string, key string) string {
	if v := labels[key]; v != "" {
		return v
	}
	return unknownLabel
}
