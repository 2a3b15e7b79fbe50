package testutils

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// ScriptedModel is the model name reported in errors from ScriptedInvoker.
const ScriptedModel = "scripted"

// Turn is one scripted reply.
type Turn struct {
	// Content is returned as the generated text. When empty a default of
	// "<persona> turn <n>" is used.
	Content string

	// Usage is the reported token accounting.
	Usage domain.Usage

	// Latency is how long the call appears to take. A FakeClock attached to
	// the invoker is advanced by this much.
	Latency time.Duration

	// Err makes the call fail.
	Err error
}

// Call records one invocation.
type Call struct {
	Persona  string
	Messages []domain.Message
}

// ScriptedInvoker is a ports.AgentInvoker that replays per-persona scripts.
// Once a persona's script is exhausted its fallback turn is repeated.
type ScriptedInvoker struct {
	mu       sync.Mutex
	clock    *FakeClock
	scripts  map[string][]Turn
	fallback Turn
	calls    []Call
	counts   map[string]int
}

var _ ports.AgentInvoker = (*ScriptedInvoker)(nil)

// NewScriptedInvoker creates an invoker. clock may be nil.
func NewScriptedInvoker(clock *FakeClock) *ScriptedInvoker {
	return &ScriptedInvoker{
		clock:   clock,
		scripts: make(map[string][]Turn),
		counts:  make(map[string]int),
	}
}

// Script queues turns for persona.
func (s *ScriptedInvoker) Script(persona string, turns ...Turn) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scripts[persona] = append(s.scripts[persona], turns...)
	return s
}

// Fallback sets the turn used when a persona has no script left.
func (s *ScriptedInvoker) Fallback(turn Turn) *ScriptedInvoker {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = turn
	return s
}

// Invoke records the call and plays the next scripted turn for persona.
func (s *ScriptedInvoker) Invoke(ctx context.Context, persona domain.Persona, messages []domain.Message) (ports.Invocation, error) {
	s.mu.Lock()
	s.calls = append(s.calls, Call{Persona: persona.Name, Messages: slices.Clone(messages)})
	s.counts[persona.Name]++
	n := s.counts[persona.Name]

	turn := s.fallback
	if queue := s.scripts[persona.Name]; len(queue) > 0 {
		turn = queue[0]
		s.scripts[persona.Name] = queue[1:]
	}
	s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ports.Invocation{}, ports.NewInvocationError(persona.Name, ScriptedModel, err)
	}

	if s.clock != nil && turn.Latency > 0 {
		s.clock.Advance(turn.Latency)
	}

	if turn.Err != nil {
		return ports.Invocation{}, ports.NewInvocationError(persona.Name, ScriptedModel, turn.Err)
	}

	content := turn.Content
	if content == "" {
		content = fmt.Sprintf("%s turn %d", persona.Name, n)
	}

	return ports.Invocation{Content: content, Usage: turn.Usage, Latency: turn.Latency}, nil
}

// Calls returns every recorded call in order.
func (s *ScriptedInvoker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.calls)
}

// CallsFor returns the calls made on behalf of persona.
func (s *ScriptedInvoker) CallsFor(persona string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.Persona == persona {
			out = append(out, c)
		}
	}
	return out
}

// Personas returns the persona of each call in order.
func (s *ScriptedInvoker) Personas() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	for i, c := range s.calls {
		out[i] = c.Persona
	}
	return out
}
