package domain

import (
	"fmt"
	"strings"
	"time"
)

// Round is one persona's completed turn: what it said and what it cost.
type Round struct {
	// Number is the 1-indexed position of the round within its debate.
	Number int `json:"number"`

	// Persona is the name of the persona that produced the content.
	Persona string `json:"persona"`

	// Content is the generated text.
	Content string `json:"content"`

	// Usage is the token accounting for the invocation.
	Usage Usage `json:"usage"`

	// Cost is Usage priced at the session's rates.
	Cost Cost `json:"cost"`

	// Latency is the wall-clock duration of the invocation.
	Latency time.Duration `json:"latency"`

	// Segment is the 1-indexed claim segment the round belongs to in
	// incremental mode, zero in full-debate mode.
	Segment int `json:"segment,omitempty"`
}

// RoundResult is the outcome of attempting a round. Exactly one of Round and
// Err is meaningful: Err == nil means the round completed.
type RoundResult struct {
	Round Round
	Err   error
}

// Succeeded reports whether the round completed.
func (r RoundResult) Succeeded() bool { return r.Err == nil }

// Transcript is an ordered list of completed rounds.
type Transcript []Round

// TotalCost sums the cost of every round.
func (t Transcript) TotalCost() Cost {
	var total Cost
	for _, r := range t {
		total = Accumulate(total, r.Cost)
	}
	return total
}

// TotalUsage sums the usage of every round.
func (t Transcript) TotalUsage() Usage {
	var total Usage
	for _, r := range t {
		total = total.Add(r.Usage)
	}
	return total
}

// String renders the transcript as "[Persona]: content" lines.
func (t Transcript) String() string {
	var b strings.Builder
	for i, r := range t {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "[%s]: %s", r.Persona, r.Content)
	}
	return b.String()
}
