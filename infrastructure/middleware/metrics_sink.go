package middleware

import (
	"strings"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Metric names recorded by MetricsSink.
const (
	MetricRounds       = "rounds_total"
	MetricRoundLatency = "round"
	MetricRoundCost    = "round_cost_dollars"
	MetricVerdicts     = "verdicts_total"
	MetricJuryOutcomes = "jury_outcomes_total"
	MetricSessions     = "sessions_total"
	MetricSessionCost  = "session_cost_dollars"
	MetricDeadlines    = "deadlines_total"
)

// MetricsSink is a ports.EventSink that turns session events into metrics.
type MetricsSink struct {
	metrics ports.MetricsCollector
}

var _ ports.EventSink = (*MetricsSink)(nil)

// NewMetricsSink creates a sink reporting to metrics.
func NewMetricsSink(metrics ports.MetricsCollector) *MetricsSink {
	return &MetricsSink{metrics: metrics}
}

// Emit records the metrics for one event.
func (s *MetricsSink) Emit(ev domain.Event) {
	if s.metrics == nil {
		return
	}

	mode := string(ev.Mode)
	switch ev.Kind {
	case domain.EventRoundCompleted:
		if ev.Round == nil {
			return
		}
		persona := strings.ToLower(ev.Round.Persona)
		s.metrics.RecordCounter(MetricRounds, 1, map[string]string{"persona": persona, "status": "success"})
		s.metrics.RecordLatency(MetricRoundLatency, ev.Round.Latency, map[string]string{"persona": persona})
		s.metrics.RecordHistogram(MetricRoundCost, float64(ev.Round.Cost), map[string]string{"persona": persona})

	case domain.EventRoundFailed:
		s.metrics.RecordCounter(MetricRounds, 1, map[string]string{"persona": strings.ToLower(ev.Persona), "status": "error"})

	case domain.EventDeadlineReached:
		s.metrics.RecordCounter(MetricDeadlines, 1, map[string]string{"mode": mode})

	case domain.EventVerdictRendered:
		label := string(domain.LabelUndetermined)
		if ev.Verdict != nil {
			label = string(ev.Verdict.Label)
		}
		s.metrics.RecordCounter(MetricVerdicts, 1, map[string]string{"label": label, "mode": mode})
		s.metrics.RecordCounter(MetricJuryOutcomes, 1, map[string]string{"outcome": "rendered"})

	case domain.EventJuryFailed:
		s.metrics.RecordCounter(MetricJuryOutcomes, 1, map[string]string{"outcome": "failed"})

	case domain.EventJurySkipped:
		s.metrics.RecordCounter(MetricJuryOutcomes, 1, map[string]string{"outcome": "skipped"})

	case domain.EventSessionCompleted:
		status := "success"
		if ev.Err != "" {
			status = "error"
		}
		s.metrics.RecordCounter(MetricSessions, 1, map[string]string{"mode": mode, "status": status})
		s.metrics.RecordHistogram(MetricSessionCost, float64(ev.TotalCost), map[string]string{"mode": mode})
	}
}
