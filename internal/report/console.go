// Package report presents sessions: a console reporter that follows the
// event stream and a JSON writer for the finished session.
package report

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// ConsoleOptions tunes the console output.
type ConsoleOptions struct {
	// ShowContent prints each round's text under its header line.
	ShowContent bool
}

// ConsoleReporter writes a line per session event. It is a ports.EventSink
// and is safe for concurrent use.
type ConsoleReporter struct {
	mu     sync.Mutex
	w      io.Writer
	styles styles
	opts   ConsoleOptions
}

var _ ports.EventSink = (*ConsoleReporter)(nil)

// NewConsoleReporter creates a reporter writing to w. Colour is used only
// when w is a terminal that supports it.
func NewConsoleReporter(w io.Writer, opts ConsoleOptions) *ConsoleReporter {
	return &ConsoleReporter{
		w:      w,
		styles: newStyles(lipgloss.NewRenderer(w)),
		opts:   opts,
	}
}

// Emit renders ev.
func (c *ConsoleReporter) Emit(ev domain.Event) {
	line := c.render(ev)
	if line == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

func (c *ConsoleReporter) render(ev domain.Event) string {
	st := c.styles

	switch ev.Kind {
	case domain.EventSessionStarted:
		return st.title.Render(fmt.Sprintf("Session %s (%s)", ev.SessionID, ev.Mode)) + "\n" +
			st.muted.Render("FACT:  ") + ev.Fact + "\n" +
			st.muted.Render("CLAIM: ") + ev.Claim

	case domain.EventSegmentStarted:
		if ev.Segment == nil {
			return ""
		}
		return st.title.Render(fmt.Sprintf("Segment %d: %s", ev.Segment.Index, ev.Segment.String()))

	case domain.EventRoundCompleted:
		if ev.Round == nil {
			return ""
		}
		r := ev.Round
		header := fmt.Sprintf("%s %s",
			st.persona.Render("["+r.Persona+"]"),
			st.muted.Render(fmt.Sprintf("round %d · %d tokens · %s · %s",
				r.Number, r.Usage.TotalTokens, r.Cost, r.Latency.Round(time.Millisecond))),
		)
		if !c.opts.ShowContent || r.Content == "" {
			return header
		}
		return header + "\n" + st.content.Render(strings.TrimSpace(r.Content))

	case domain.EventRoundFailed:
		return st.failure.Render(fmt.Sprintf("[%s] failed: %s", ev.Persona, ev.Err))

	case domain.EventDeadlineReached:
		return st.warning.Render(fmt.Sprintf("Deadline reached after %s", ev.Elapsed.Round(time.Millisecond)))

	case domain.EventVerdictRendered:
		if ev.Verdict == nil {
			return ""
		}
		return c.renderVerdict(*ev.Verdict)

	case domain.EventJuryFailed:
		return st.failure.Render(fmt.Sprintf("Jury failed: %s", ev.Err))

	case domain.EventJurySkipped:
		return st.warning.Render("Jury skipped: no debate rounds were completed")

	case domain.EventSessionCompleted:
		if ev.Err != "" {
			return st.failure.Render(fmt.Sprintf("Session failed after %s · total %s: %s",
				ev.Elapsed.Round(time.Millisecond), ev.TotalCost, ev.Err))
		}
		return st.success.Render(fmt.Sprintf("Session complete in %s · total %s",
			ev.Elapsed.Round(time.Millisecond), ev.TotalCost))
	}

	return ""
}

func (c *ConsoleReporter) renderVerdict(v domain.Verdict) string {
	label := c.labelStyle(v.Label).Render(string(v.Label))
	line := fmt.Sprintf("Verdict: %s (%.0f%%)", label, v.Confidence)
	if v.Segment > 0 {
		line = fmt.Sprintf("Segment %d verdict: %s (%.0f%%)", v.Segment, label, v.Confidence)
	}
	if v.Rationale != "" {
		line += " " + c.styles.muted.Render(v.Rationale)
	}
	return line
}

func (c *ConsoleReporter) labelStyle(l domain.Label) lipgloss.Style {
	switch l {
	case domain.LabelFaithful:
		return c.styles.faithful
	case domain.LabelMutation:
		return c.styles.mutation
	default:
		return c.styles.warning
	}
}

// Summary writes a boxed overview of a finished session.
func (c *ConsoleReporter) Summary(s *domain.Session) {
	var b strings.Builder
	fmt.Fprintf(&b, "Session   %s\n", s.ID)
	fmt.Fprintf(&b, "Mode      %s\n", s.Mode)
	fmt.Fprintf(&b, "Rounds    %d\n", len(s.Rounds))
	fmt.Fprintf(&b, "Tokens    %d\n", s.Transcript().TotalUsage().TotalTokens)
	fmt.Fprintf(&b, "Cost      %s\n", s.TotalCost)
	fmt.Fprintf(&b, "Duration  %s", s.Duration().Round(time.Millisecond))

	switch {
	case s.Mode == domain.ModeIncremental && len(s.Verdicts) > 0:
		for _, v := range s.Verdicts {
			fmt.Fprintf(&b, "\nSegment %d %s (%.0f%%)", v.Segment, c.labelStyle(v.Label).Render(string(v.Label)), v.Confidence)
		}
	case len(s.Verdicts) > 0:
		v, _ := s.FinalVerdict()
		fmt.Fprintf(&b, "\nVerdict   %s (%.0f%%)", c.labelStyle(v.Label).Render(string(v.Label)), v.Confidence)
	default:
		fmt.Fprintf(&b, "\nVerdict   %s", c.styles.warning.Render("none"))
	}

	if len(s.Failures) > 0 {
		fmt.Fprintf(&b, "\nFailures  %d", len(s.Failures))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, c.styles.summary.Render(b.String()))
}
