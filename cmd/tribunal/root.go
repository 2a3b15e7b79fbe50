package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ahrav/go-tribunal/internal/application"
	"github.com/ahrav/go-tribunal/internal/domain"
)

// options holds the command-line flags. Flags that are set override the
// configuration file.
type options struct {
	configPath  string
	fact        string
	claim       string
	mode        string
	duration    time.Duration
	model       string
	panel       []string
	jury        string
	policy      string
	metricsAddr string
	logLevel    string
	jsonOutput  bool
	showContent bool
}

func newRootCmd() *cobra.Command { return newRootCmdWith(&options{}) }

func newRootCmdWith(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tribunal",
		Short: "Check a claim against a fact with a debating LLM panel",
		Long: `tribunal stages a debate between LLM personas about whether a claim is
faithful to a fact, then asks a jury persona for a verdict.

In full mode the panel debates the whole claim until the time box runs out.
In incremental mode the claim is split into sentences and each one is
debated and judged in turn.

Examples:
  tribunal --fact "The sky is blue." --claim "The sky is green."
  tribunal --mode incremental --fact "..." --claim "First. Second!"
  tribunal --config tribunal.yaml --json --fact "..." --claim "..."`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runSession(ctx, cfg, opts, sessionIO{
				out:    cmd.OutOrStdout(),
				errOut: cmd.ErrOrStderr(),
			}, nil)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML configuration file")
	f.StringVar(&opts.fact, "fact", "", "the reference fact")
	f.StringVar(&opts.claim, "claim", "", "the claim to check against the fact")
	f.StringVar(&opts.mode, "mode", string(domain.ModeFull), "session mode: full or incremental")
	f.DurationVar(&opts.duration, "duration", application.DefaultDebateDuration, "full-mode debate time box")
	f.StringVar(&opts.model, "model", "", `default model spec, e.g. "openai/gpt-4.1-mini"`)
	f.StringSliceVar(&opts.panel, "panel", nil, "debating personas in speaking order")
	f.StringVar(&opts.jury, "jury", "", "persona that renders verdicts")
	f.StringVar(&opts.policy, "failure-policy", "", "incremental failure policy: abort or skip")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", `serve /metrics and /healthz on this address, e.g. ":9090"`)
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error")
	f.BoolVar(&opts.jsonOutput, "json", false, "write the session as JSON to stdout; progress goes to stderr")
	f.BoolVar(&opts.showContent, "show-content", false, "print every round's text")

	_ = cmd.MarkFlagRequired("fact")
	_ = cmd.MarkFlagRequired("claim")

	cmd.AddCommand(newPersonasCmd())
	return cmd
}

func newPersonasCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:     "personas",
		Aliases: []string{"persona"},
		Short:   "List the configured personas",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, &options{configPath: configPath})
			if err != nil {
				return err
			}
			return listPersonas(cmd.OutOrStdout(), cfg)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML configuration file")
	return cmd
}

// loadConfig reads the configuration file, or the defaults when none is
// given, applies flag overrides and validates the result.
func loadConfig(cmd *cobra.Command, opts *options) (application.Config, error) {
	loader, err := application.NewConfigLoader()
	if err != nil {
		return application.Config{}, fmt.Errorf("failed to create config loader: %w", err)
	}

	cfg := application.DefaultConfig()
	if opts.configPath != "" {
		if cfg, err = loader.LoadFromFile(opts.configPath); err != nil {
			return application.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
	}

	applyOverrides(&cfg, cmd, opts)

	if err := loader.Validate(cfg); err != nil {
		return application.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyOverrides copies every flag the user set onto cfg.
func applyOverrides(cfg *application.Config, cmd *cobra.Command, opts *options) {
	changed := cmd.Flags().Changed

	if changed("duration") {
		cfg.Debate.Duration = opts.duration
	}
	if changed("model") {
		cfg.Model = opts.model
	}
	if changed("panel") {
		cfg.Debate.Panel = opts.panel
	}
	if changed("jury") {
		cfg.Jury.Persona = opts.jury
	}
	if changed("failure-policy") {
		cfg.Incremental.FailurePolicy = opts.policy
	}
	if changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	if changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
}

func parseMode(s string) (domain.Mode, error) {
	mode, err := domain.ParseMode(s)
	if err != nil {
		return "", fmt.Errorf("invalid --mode: %w", err)
	}
	return mode, nil
}
