package ports

import (
	"context"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// Invocation is the result of one successful generation call.
type Invocation struct {
	// Content is the generated text.
	Content string

	// Usage is the token accounting reported by the backend.
	Usage domain.Usage

	// Latency is the wall-clock duration of the call.
	Latency time.Duration
}

// AgentInvoker sends a conversation to a generation backend on behalf of a
// persona. The persona's instructions become the system prompt; messages are
// sent in order after it.
//
// Every failure, whatever its cause, is returned as an *InvocationError so
// callers can treat all failures uniformly. A cancelled ctx is reported the
// same way.
type AgentInvoker interface {
	Invoke(ctx context.Context, persona domain.Persona, messages []domain.Message) (Invocation, error)
}

// AgentInvokerFunc adapts a function to the AgentInvoker interface.
type AgentInvokerFunc func(ctx context.Context, persona domain.Persona, messages []domain.Message) (Invocation, error)

// Invoke calls f.
func (f AgentInvokerFunc) Invoke(ctx context.Context, persona domain.Persona, messages []domain.Message) (Invocation, error) {
	return f(ctx, persona, messages)
}

// Deliberation is the material a jury judges.
type Deliberation struct {
	// Fact is the source fact.
	Fact string

	// Claim is the claim under test; in incremental mode the cumulative
	// claim so far.
	Claim string

	// Segment is the current segment in incremental mode, nil otherwise.
	Segment *domain.ClaimSegment

	// Transcript is the debate so far, in order.
	Transcript domain.Transcript
}

// JuryResult is a verdict together with the invocation that produced it, so
// the caller can account for its cost.
type JuryResult struct {
	Verdict    domain.Verdict
	Invocation Invocation
}

// VerdictAggregator turns a debate transcript into a verdict.
//
// Implementations return domain.ErrEmptyTranscript without invoking anything
// when the transcript is empty. Output that cannot be interpreted yields an
// UNDETERMINED verdict, not an error; only invocation failures are errors.
type VerdictAggregator interface {
	Deliberate(ctx context.Context, d Deliberation) (JuryResult, error)
}

// EventSink receives session events as they happen. Emit is called
// synchronously from the orchestrator and must not block for long.
type EventSink interface {
	Emit(event domain.Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(event domain.Event)

// Emit calls f.
func (f EventSinkFunc) Emit(event domain.Event) { f(event) }

// Clock is the time source used for session deadlines and timestamps.
type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// MetricsCollector defines the interface for collecting operational metrics.
// Implementations should integrate with observability platforms like
// Prometheus or OpenTelemetry.
type MetricsCollector interface {
	// RecordLatency records the execution time of an operation.
	// The labels map provides additional context for the metric.
	RecordLatency(operation string, duration time.Duration, labels map[string]string)

	// RecordCounter increments a counter metric.
	RecordCounter(metric string, value float64, labels map[string]string)

	// RecordGauge sets the current value of a gauge metric.
	RecordGauge(metric string, value float64, labels map[string]string)

	// RecordHistogram records a value in a histogram.
	RecordHistogram(metric string, value float64, labels map[string]string)
}
