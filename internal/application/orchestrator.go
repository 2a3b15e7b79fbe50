// Package application runs verification sessions: it schedules persona
// turns, assembles their conversations, enforces the debate time box, walks
// claims segment by segment and asks the jury for verdicts.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/ports"
)

// Request describes one session to run.
type Request struct {
	Fact  string
	Claim string
	Mode  domain.Mode

	// SessionID overrides the generated session identifier.
	SessionID string
}

// OrchestratorConfig wires an Orchestrator.
type OrchestratorConfig struct {
	// Panel lists the debating personas in speaking order.
	Panel []domain.Persona

	// Invoker plays the panel's turns.
	Invoker ports.AgentInvoker

	// Jury renders verdicts.
	Jury ports.VerdictAggregator

	// JuryPersona names the jury in recorded rounds. Defaults to
	// domain.PersonaJury.
	JuryPersona string

	// Clock defaults to the wall clock.
	Clock ports.Clock

	// Pricing converts token usage into cost.
	Pricing domain.Pricing

	// DebateDuration is the full-mode time box.
	DebateDuration time.Duration

	// FailurePolicy is FailurePolicyAbort (default) or FailurePolicySkip.
	FailurePolicy string

	// Sink receives session events. May be nil.
	Sink ports.EventSink

	// Logger defaults to a discarding logger.
	Logger *slog.Logger

	// NewID generates session identifiers. Defaults to random UUIDs.
	NewID func() string
}

// Orchestrator runs sessions. It holds no per-session state, so one
// Orchestrator may run many sessions, one at a time or concurrently.
type Orchestrator struct {
	scheduler     *TurnScheduler
	jury          ports.VerdictAggregator
	juryPersona   string
	clock         ports.Clock
	duration      time.Duration
	failurePolicy string
	sink          ports.EventSink
	logger        *slog.Logger
	newID         func() string
}

// NewOrchestrator validates cfg and returns an Orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if cfg.Jury == nil {
		return nil, fmt.Errorf("orchestrator: jury is required")
	}
	if cfg.DebateDuration < 0 {
		return nil, fmt.Errorf("orchestrator: debate duration cannot be negative, got %v", cfg.DebateDuration)
	}

	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}

	scheduler, err := NewTurnScheduler(cfg.Panel, cfg.Invoker, cfg.Clock, cfg.Pricing)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: %w", err)
	}

	switch cfg.FailurePolicy {
	case "":
		cfg.FailurePolicy = FailurePolicyAbort
	case FailurePolicyAbort, FailurePolicySkip:
	default:
		return nil, fmt.Errorf("orchestrator: %w: unknown failure policy %q", domain.ErrInvalidConfiguration, cfg.FailurePolicy)
	}

	if cfg.JuryPersona == "" {
		cfg.JuryPersona = domain.PersonaJury
	}
	if cfg.Sink == nil {
		cfg.Sink = discardSink{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Orchestrator{
		scheduler:     scheduler,
		jury:          cfg.Jury,
		juryPersona:   cfg.JuryPersona,
		clock:         cfg.Clock,
		duration:      cfg.DebateDuration,
		failurePolicy: cfg.FailurePolicy,
		sink:          cfg.Sink,
		logger:        cfg.Logger,
		newID:         cfg.NewID,
	}, nil
}

// workflow is a session strategy: how rounds are arranged and judged.
type workflow interface {
	execute(ctx context.Context, r *run) error
}

// Run executes one session. The returned session is never nil once the
// request is valid: on error it holds everything completed before the
// failure.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*domain.Session, error) {
	if strings.TrimSpace(req.Fact) == "" {
		return nil, fmt.Errorf("fact: %w", domain.ErrEmptyValue)
	}
	if strings.TrimSpace(req.Claim) == "" {
		return nil, fmt.Errorf("claim: %w", domain.ErrEmptyValue)
	}

	var wf workflow
	switch req.Mode {
	case domain.ModeFull, "":
		req.Mode = domain.ModeFull
		wf = timeboxedWorkflow{}
	case domain.ModeIncremental:
		wf = stagedWorkflow{}
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidConfiguration, req.Mode)
	}

	id := req.SessionID
	if id == "" {
		id = o.newID()
	}

	r := &run{
		o:       o,
		session: domain.NewSession(id, req.Fact, req.Claim, req.Mode, o.clock.Now()),
		logger:  o.logger.With("session_id", id, "mode", string(req.Mode)),
	}

	r.logger.Info("session started")
	r.emit(domain.Event{Kind: domain.EventSessionStarted, Fact: req.Fact, Claim: req.Claim})

	err := wf.execute(ctx, r)

	r.session.Complete(o.clock.Now())
	done := domain.Event{
		Kind:      domain.EventSessionCompleted,
		Elapsed:   r.session.Duration(),
		TotalCost: r.session.TotalCost,
	}
	if err != nil {
		done.Err = err.Error()
		r.logger.Error("session failed", "error", err, "total_cost", r.session.TotalCost.String())
	} else {
		r.logger.Info("session completed",
			"rounds", len(r.session.Rounds),
			"verdicts", len(r.session.Verdicts),
			"total_cost", r.session.TotalCost.String(),
			"elapsed", r.session.Duration(),
		)
	}
	r.emit(done)

	return r.session, err
}

// run is the state of one session in progress.
type run struct {
	o       *Orchestrator
	session *domain.Session
	logger  *slog.Logger
}

func (r *run) emit(ev domain.Event) {
	ev.SessionID = r.session.ID
	ev.Mode = r.session.Mode
	if ev.At.IsZero() {
		ev.At = r.o.clock.Now()
	}
	r.o.sink.Emit(ev)
}

// observeRound records the outcome of a panel round.
func (r *run) observeRound(segment int) RoundObserver {
	return func(number int, persona domain.Persona, result domain.RoundResult) {
		if !result.Succeeded() {
			r.logger.Warn("round failed", "persona", persona.Name, "round", number, "segment", segment, "error", result.Err)
			r.session.RecordFailure(domain.Failure{
				Persona: persona.Name,
				Round:   number,
				Segment: segment,
				Message: result.Err.Error(),
			})
			r.emit(domain.Event{Kind: domain.EventRoundFailed, Persona: persona.Name, Err: result.Err.Error()})
			return
		}

		round := result.Round
		r.session.AppendRound(round)
		r.logger.Debug("round completed",
			"persona", persona.Name,
			"round", number,
			"segment", segment,
			"tokens", round.Usage.TotalTokens,
			"cost", round.Cost.String(),
			"latency", round.Latency,
		)
		r.emit(domain.Event{Kind: domain.EventRoundCompleted, Persona: persona.Name, Round: &round, TotalCost: r.session.TotalCost})
	}
}

// deliberate asks the jury for a verdict and records it with its cost.
// number is the round number given to the jury's round.
func (r *run) deliberate(ctx context.Context, d ports.Deliberation, number int) error {
	segment := 0
	if d.Segment != nil {
		segment = d.Segment.Index
	}

	result, err := r.o.jury.Deliberate(ctx, d)
	if err != nil {
		r.logger.Warn("jury failed", "persona", r.o.juryPersona, "segment", segment, "error", err)
		r.session.RecordFailure(domain.Failure{Persona: r.o.juryPersona, Segment: segment, Message: err.Error()})
		r.emit(domain.Event{Kind: domain.EventJuryFailed, Persona: r.o.juryPersona, Segment: d.Segment, Err: err.Error()})
		return err
	}

	round := r.o.scheduler.price(number, r.o.juryPersona, result.Invocation, segment)
	r.session.AppendRound(round)
	r.emit(domain.Event{Kind: domain.EventRoundCompleted, Persona: r.o.juryPersona, Round: &round, TotalCost: r.session.TotalCost})

	verdict := result.Verdict
	r.session.AppendVerdict(verdict)
	r.logger.Info("verdict rendered",
		"segment", segment,
		"label", string(verdict.Label),
		"confidence", verdict.Confidence,
		"cost", round.Cost.String(),
	)
	r.emit(domain.Event{Kind: domain.EventVerdictRendered, Persona: r.o.juryPersona, Verdict: &verdict, Segment: d.Segment})
	return nil
}

// timeboxedWorkflow runs the full-debate mode: the panel debates the whole
// claim until the time box closes, then the jury judges the transcript.
type timeboxedWorkflow struct{}

func (timeboxedWorkflow) execute(ctx context.Context, r *run) error {
	s := r.session
	conv := domain.Seed(s.Fact, s.Claim)

	res := r.o.scheduler.RunTimeboxed(ctx, conv, r.o.duration, r.observeRound(0))
	if res.DeadlineReached {
		r.logger.Info("deadline reached", "rounds", len(res.Rounds), "elapsed", res.Elapsed)
		r.emit(domain.Event{Kind: domain.EventDeadlineReached, Elapsed: res.Elapsed})
	}

	if len(res.Rounds) == 0 {
		r.logger.Info("jury skipped: empty transcript")
		r.emit(domain.Event{Kind: domain.EventJurySkipped, Persona: r.o.juryPersona})
		return nil
	}

	// A jury failure is recorded on the session, not returned.
	_ = r.deliberate(ctx, ports.Deliberation{
		Fact:       s.Fact,
		Claim:      s.Claim,
		Transcript: domain.Transcript(res.Rounds),
	}, len(res.Rounds)+1)
	return nil
}

// stagedWorkflow runs the incremental mode: every claim segment gets one
// turn per panel persona and a jury verdict, without a time box.
type stagedWorkflow struct{}

func (stagedWorkflow) execute(ctx context.Context, r *run) error {
	s := r.session
	s.Segments = domain.SegmentClaim(s.Claim)

	var errs []error
	for _, seg := range s.Segments {
		err := r.judgeSegment(ctx, seg)
		r.emit(domain.Event{Kind: domain.EventSegmentCompleted, Segment: &seg, TotalCost: s.TotalCost})
		if err == nil {
			continue
		}

		wrapped := fmt.Errorf("segment %d: %w", seg.Index, err)
		if r.o.failurePolicy == FailurePolicyAbort {
			return wrapped
		}
		r.logger.Warn("segment skipped", "segment", seg.Index, "error", err)
		errs = append(errs, wrapped)
	}

	if len(errs) > 0 {
		r.logger.Warn("segments skipped", "count", len(errs), "error", errors.Join(errs...))
	}
	return nil
}

// judgeSegment plays one segment: each panel persona in order, then the
// jury.
func (r *run) judgeSegment(ctx context.Context, seg domain.ClaimSegment) error {
	s := r.session
	cumulative := domain.Cumulative(s.Segments, seg.Index)
	roundContext := fmt.Sprintf("FACT: %s\nCLAIM SO FAR: %s\nCURRENT SEGMENT: %s", s.Fact, cumulative, seg.String())

	r.logger.Debug("segment started", "segment", seg.Index, "text", seg.String())
	r.emit(domain.Event{Kind: domain.EventSegmentStarted, Segment: &seg})

	observe := r.observeRound(seg.Index)
	panel := r.o.scheduler.Panel()
	var transcript domain.Transcript

	for i, persona := range panel {
		task := segmentTask(roundContext, persona, transcript)
		number := i + 1

		result := r.o.scheduler.Play(ctx, number, persona, []domain.Message{{Role: domain.RoleUser, Content: task}}, seg.Index)
		observe(number, persona, result)
		if !result.Succeeded() {
			return result.Err
		}
		transcript = append(transcript, result.Round)
	}

	return r.deliberate(ctx, ports.Deliberation{
		Fact:       s.Fact,
		Claim:      cumulative,
		Segment:    &seg,
		Transcript: transcript,
	}, len(panel)+1)
}

// segmentTask builds the single message a panel persona receives for a
// segment. The opening persona is asked to attack the segment; later
// personas see every earlier reply and are asked to justify it.
func segmentTask(roundContext string, persona domain.Persona, prior domain.Transcript) string {
	var b strings.Builder
	b.WriteString(roundContext)
	b.WriteByte('\n')

	if len(prior) == 0 {
		fmt.Fprintf(&b, "%s, what is wrong with this specific segment?", persona.Name)
		return b.String()
	}

	for _, r := range prior {
		fmt.Fprintf(&b, "%s said: %s\n", r.Persona, r.Content)
	}
	fmt.Fprintf(&b, "%s, justify this segment.", persona.Name)
	return b.String()
}
