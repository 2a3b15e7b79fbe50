package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// ErrEmptyPanel is returned when a scheduler is built without personas.
var ErrEmptyPanel = errors.New("panel must contain at least one persona")

// RoundObserver is told about every attempted round as soon as it ends.
type RoundObserver func(number int, persona domain.Persona, result domain.RoundResult)

// TimeboxResult summarises a time-boxed debate.
type TimeboxResult struct {
	// Rounds holds the completed rounds in order.
	Rounds []domain.Round

	// Err is the failure that stopped the debate, if any.
	Err error

	// FailedPersona is the persona whose round failed.
	FailedPersona string

	// DeadlineReached is true when the debate ended because time ran out.
	DeadlineReached bool

	// Elapsed is the clock time the debate took.
	Elapsed time.Duration
}

// TurnScheduler decides who speaks next and plays rounds through an
// invoker, pricing each completed round.
type TurnScheduler struct {
	panel   []domain.Persona
	invoker ports.AgentInvoker
	clock   ports.Clock
	pricing domain.Pricing
}

// NewTurnScheduler creates a scheduler for panel, which speaks in order.
func NewTurnScheduler(panel []domain.Persona, invoker ports.AgentInvoker, clock ports.Clock, pricing domain.Pricing) (*TurnScheduler, error) {
	if len(panel) == 0 {
		return nil, ErrEmptyPanel
	}
	if invoker == nil {
		return nil, fmt.Errorf("turn scheduler: invoker is required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TurnScheduler{
		panel:   panel,
		invoker: invoker,
		clock:   clock,
		pricing: pricing,
	}, nil
}

// AgentFor returns the persona speaking in round n (1-indexed).
func (s *TurnScheduler) AgentFor(n int) domain.Persona {
	if n < 1 {
		panic(fmt.Sprintf("turn scheduler: round number must be >= 1, got %d", n))
	}
	return s.panel[(n-1)%len(s.panel)]
}

// Panel returns the personas in speaking order.
func (s *TurnScheduler) Panel() []domain.Persona { return s.panel }

// Play invokes persona with messages and returns the priced round. segment
// is zero outside incremental mode.
func (s *TurnScheduler) Play(ctx context.Context, number int, persona domain.Persona, messages []domain.Message, segment int) domain.RoundResult {
	inv, err := s.invoker.Invoke(ctx, persona, messages)
	if err != nil {
		return domain.RoundResult{Err: err}
	}
	return domain.RoundResult{Round: s.price(number, persona.Name, inv, segment)}
}

func (s *TurnScheduler) price(number int, persona string, inv ports.Invocation, segment int) domain.Round {
	return domain.Round{
		Number:  number,
		Persona: persona,
		Content: inv.Content,
		Usage:   inv.Usage,
		Cost:    s.pricing.Cost(inv.Usage),
		Latency: inv.Latency,
		Segment: segment,
	}
}

// RunTimeboxed runs rounds over conv until duration has elapsed on the
// scheduler's clock. The deadline is checked before each round; a round in
// flight is never interrupted, so the last round may finish after the
// deadline. The first failure stops the debate and the rounds completed so
// far are kept. observe may be nil.
func (s *TurnScheduler) RunTimeboxed(ctx context.Context, conv *domain.Conversation, duration time.Duration, observe RoundObserver) TimeboxResult {
	var res TimeboxResult
	start := s.clock.Now()

	for n := 1; ; n++ {
		if s.clock.Since(start) >= duration {
			res.DeadlineReached = true
			break
		}

		persona := s.AgentFor(n)
		result := s.Play(ctx, n, persona, conv.Messages(), 0)
		if observe != nil {
			observe(n, persona, result)
		}

		if !result.Succeeded() {
			res.Err = result.Err
			res.FailedPersona = persona.Name
			break
		}

		res.Rounds = append(res.Rounds, result.Round)
		conv.AppendResponse(persona, result.Round.Content)

		if s.clock.Since(start) < duration {
			conv.AppendHandoff(persona)
		}
	}

	res.Elapsed = s.clock.Since(start)
	return res
}
