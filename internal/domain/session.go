package domain

import (
	"fmt"
	"time"
)

// Mode selects how a session is run.
type Mode string

// Session modes.
const (
	// ModeFull runs a time-boxed debate over the whole claim, then one verdict.
	ModeFull Mode = "full"

	// ModeIncremental judges the claim segment by segment.
	ModeIncremental Mode = "incremental"
)

// ParseMode validates a mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeFull, ModeIncremental:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: unknown mode %q", ErrInvalidConfiguration, s)
	}
}

// Failure records an invocation that did not complete.
type Failure struct {
	// Persona is the persona whose invocation failed.
	Persona string `json:"persona"`

	// Round is the round number that was being attempted, zero for the Jury.
	Round int `json:"round,omitempty"`

	// Segment is the claim segment being processed in incremental mode.
	Segment int `json:"segment,omitempty"`

	// Message is the error text.
	Message string `json:"message"`
}

// Session is the record of one verification run. It is owned by a single
// orchestrator run and must not be shared while the run is in progress.
type Session struct {
	ID    string `json:"id"`
	Fact  string `json:"fact"`
	Claim string `json:"claim"`
	Mode  Mode   `json:"mode"`

	// Rounds holds every completed round, including Jury rounds, in the
	// order they completed.
	Rounds []Round `json:"rounds"`

	// Verdicts holds one verdict in full mode (none if the Jury was skipped
	// or failed) and one per judged segment in incremental mode.
	Verdicts []Verdict `json:"verdicts"`

	// Segments is the segmented claim in incremental mode.
	Segments []ClaimSegment `json:"segments,omitempty"`

	// TotalCost is the sum of Rounds[i].Cost. It is only ever updated by
	// AppendRound.
	TotalCost Cost `json:"total_cost"`

	// Failures lists invocations that did not complete.
	Failures []Failure `json:"failures,omitempty"`

	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewSession creates an empty session.
func NewSession(id, fact, claim string, mode Mode, startedAt time.Time) *Session {
	return &Session{
		ID:        id,
		Fact:      fact,
		Claim:     claim,
		Mode:      mode,
		Rounds:    make([]Round, 0),
		Verdicts:  make([]Verdict, 0),
		StartedAt: startedAt,
	}
}

// AppendRound records a completed round and adds its cost to the total.
func (s *Session) AppendRound(r Round) {
	s.Rounds = append(s.Rounds, r)
	s.TotalCost = Accumulate(s.TotalCost, r.Cost)
}

// AppendVerdict records a verdict.
func (s *Session) AppendVerdict(v Verdict) { s.Verdicts = append(s.Verdicts, v) }

// RecordFailure records an invocation failure.
func (s *Session) RecordFailure(f Failure) { s.Failures = append(s.Failures, f) }

// Complete stamps the completion time.
func (s *Session) Complete(at time.Time) { s.CompletedAt = at }

// Duration returns the elapsed time between start and completion.
func (s *Session) Duration() time.Duration {
	if s.CompletedAt.IsZero() {
		return 0
	}
	return s.CompletedAt.Sub(s.StartedAt)
}

// Transcript returns the rounds produced by the given personas, in order.
// With no names every round is returned.
func (s *Session) Transcript(personas ...string) Transcript {
	if len(personas) == 0 {
		return Transcript(s.Rounds)
	}
	want := make(map[string]struct{}, len(personas))
	for _, p := range personas {
		want[p] = struct{}{}
	}
	var out Transcript
	for _, r := range s.Rounds {
		if _, ok := want[r.Persona]; ok {
			out = append(out, r)
		}
	}
	return out
}

// FinalVerdict returns the last verdict recorded, if any.
func (s *Session) FinalVerdict() (Verdict, bool) {
	if len(s.Verdicts) == 0 {
		return Verdict{}, false
	}
	return s.Verdicts[len(s.Verdicts)-1], true
}
