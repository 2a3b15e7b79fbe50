package report

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ahrav/go-tribunal/internal/domain"
)

// SessionReport is the JSON document written for a finished session.
type SessionReport struct {
	*domain.Session

	// FinalVerdict is the last verdict rendered, if any.
	FinalVerdict *domain.Verdict `json:"final_verdict,omitempty"`

	// TotalTokens sums the usage of every round.
	TotalTokens int `json:"total_tokens"`

	// DurationMS is the session's wall-clock duration in milliseconds.
	DurationMS int64 `json:"duration_ms"`
}

// NewSessionReport derives the report for s.
func NewSessionReport(s *domain.Session) SessionReport {
	r := SessionReport{
		Session:     s,
		TotalTokens: s.Transcript().TotalUsage().TotalTokens,
		DurationMS:  s.Duration().Milliseconds(),
	}
	if v, ok := s.FinalVerdict(); ok {
		r.FinalVerdict = &v
	}
	return r
}

// WriteJSON writes s as an indented JSON report.
func WriteJSON(w io.Writer, s *domain.Session) error {
	if s == nil {
		return fmt.Errorf("write session report: %w", domain.ErrEmptyValue)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(NewSessionReport(s)); err != nil {
		return fmt.Errorf("write session report: %w", err)
	}
	return nil
}
