package domain

import "time"

// EventKind identifies a step in a session's lifecycle.
type EventKind string

// Session lifecycle events.
const (
	EventSessionStarted   EventKind = "session_started"
	EventSegmentStarted   EventKind = "segment_started"
	EventRoundCompleted   EventKind = "round_completed"
	EventRoundFailed      EventKind = "round_failed"
	EventDeadlineReached  EventKind = "deadline_reached"
	EventVerdictRendered  EventKind = "verdict_rendered"
	EventJuryFailed       EventKind = "jury_failed"
	EventJurySkipped      EventKind = "jury_skipped"
	EventSegmentCompleted EventKind = "segment_completed"
	EventSessionCompleted EventKind = "session_completed"
)

// Event is a discrete, self-contained notification emitted while a session
// runs. Only the fields relevant to Kind are set.
type Event struct {
	Kind      EventKind     `json:"kind"`
	SessionID string        `json:"session_id"`
	Mode      Mode          `json:"mode,omitempty"`
	At        time.Time     `json:"at"`
	Fact      string        `json:"fact,omitempty"`
	Claim     string        `json:"claim,omitempty"`
	Round     *Round        `json:"round,omitempty"`
	Verdict   *Verdict      `json:"verdict,omitempty"`
	Segment   *ClaimSegment `json:"segment,omitempty"`
	Persona   string        `json:"persona,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
	TotalCost Cost          `json:"total_cost,omitempty"`
	Err       string        `json:"error,omitempty"`
}
