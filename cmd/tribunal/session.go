package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/ahrav/go-tribunal/infrastructure/middleware"
	"github.com/ahrav/go-tribunal/infrastructure/units"
	"github.com/ahrav/go-tribunal/internal/application"
	"github.com/ahrav/go-tribunal/internal/domain"
	"github.com/ahrav/go-tribunal/internal/logging"
	"github.com/ahrav/go-tribunal/internal/ports"
	"github.com/ahrav/go-tribunal/internal/report"
)

type sessionIO struct {
	out    io.Writer
	errOut io.Writer
}

// sessionDeps replaces parts of the production wiring. Nil fields select
// the defaults.
type sessionDeps struct {
	invoker ports.AgentInvoker
	clock   ports.Clock
}

// runSession wires one session from cfg and runs it, serving metrics for
// its duration when an address is configured.
func runSession(ctx context.Context, cfg application.Config, opts *options, sio sessionIO, deps *sessionDeps) error {
	if deps == nil {
		deps = &sessionDeps{}
	}

	mode, err := parseMode(opts.mode)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format}, sio.errOut)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewPrometheusMetricsWithRegistry(reg)

	personas, err := cfg.PersonaRegistry()
	if err != nil {
		return fmt.Errorf("invalid personas: %w", err)
	}
	panel, err := personas.Resolve(cfg.Debate.Panel...)
	if err != nil {
		return fmt.Errorf("invalid panel: %w", err)
	}
	juryPersona, ok := personas.Get(cfg.Jury.Persona)
	if !ok {
		return fmt.Errorf("invalid jury: %w: %q", domain.ErrUnknownPersona, cfg.Jury.Persona)
	}

	invoker := deps.invoker
	if invoker == nil {
		registry, err := newLLMRegistry(cfg, metrics)
		if err != nil {
			return err
		}
		if invoker, err = newPersonaInvoker(registry, cfg, panel, juryPersona); err != nil {
			return err
		}
	}

	sessionID := uuid.NewString()

	if cfg.Budget.Enabled() {
		budget := middleware.NewBudgetManager(middleware.Budget{
			MaxCost:   domain.Cost(cfg.Budget.MaxCost),
			MaxTokens: cfg.Budget.MaxTokens,
			MaxCalls:  cfg.Budget.MaxCalls,
		}, cfg.Pricing.Pricing(), invoker, middleware.NewOTelBudgetObserver(metrics, sessionID))
		if err := budget.Validate(); err != nil {
			return fmt.Errorf("invalid budget: %w", err)
		}
		invoker = budget
	}

	jury, err := units.NewJury(juryPersona, invoker, deps.clock, juryConfig(cfg.Jury))
	if err != nil {
		return fmt.Errorf("failed to create jury: %w", err)
	}

	progress := sio.out
	if opts.jsonOutput {
		progress = sio.errOut
	}
	console := report.NewConsoleReporter(progress, report.ConsoleOptions{ShowContent: opts.showContent})

	orchestrator, err := application.NewOrchestrator(application.OrchestratorConfig{
		Panel:          panel,
		Invoker:        invoker,
		Jury:           jury,
		JuryPersona:    juryPersona.Name,
		Clock:          deps.clock,
		Pricing:        cfg.Pricing.Pricing(),
		DebateDuration: cfg.Debate.Duration,
		FailurePolicy:  cfg.Incremental.FailurePolicy,
		Sink:           application.MultiSink{console, middleware.NewMetricsSink(metrics)},
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create orchestrator: %w", err)
	}

	var session *domain.Session
	runErr := runWithMetrics(ctx, cfg.Metrics.Addr, newMetricsRouter(reg), logger, func(ctx context.Context) error {
		var err error
		session, err = orchestrator.Run(ctx, application.Request{
			Fact:      opts.fact,
			Claim:     opts.claim,
			Mode:      mode,
			SessionID: sessionID,
		})
		return err
	})

	if session != nil {
		if opts.jsonOutput {
			if err := report.WriteJSON(sio.out, session); err != nil {
				return err
			}
		} else {
			console.Summary(session)
		}
	}

	if runErr != nil {
		logger.Error("session failed", slog.String("session_id", sessionID), slog.Any("error", runErr))
	}
	return runErr
}

// juryConfig maps the configured jury onto the unit's configuration, keeping
// the stock prompts unless they are overridden.
func juryConfig(cfg application.JuryConfig) units.JuryConfig {
	jc := units.DefaultJuryConfig()
	jc.RequestJSON = cfg.RequestJSON
	jc.LabelTolerance = cfg.LabelTolerance
	if cfg.FullPrompt != "" {
		jc.FullPrompt = cfg.FullPrompt
	}
	if cfg.SegmentPrompt != "" {
		jc.SegmentPrompt = cfg.SegmentPrompt
	}
	return jc
}

// listPersonas prints every configured persona with its role and model.
func listPersonas(w io.Writer, cfg application.Config) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tROLE\tMODEL")
	for _, p := range cfg.Personas {
		role := "-"
		if i := slices.Index(cfg.Debate.Panel, p.Name); i >= 0 {
			role = fmt.Sprintf("panel #%d", i+1)
		}
		if p.Name == cfg.Jury.Persona {
			role = "jury"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Name, role, cfg.ModelFor(p.Name))
	}
	return tw.Flush()
}
