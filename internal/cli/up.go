package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sergehoo/lynerp/internal/config"
	"github.com/sergehoo/lynerp/internal/migrate"
	"github.com/sergehoo/lynerp/internal/model"
	"github.com/sergehoo/lynerp/internal/probe"
	"github.com/sergehoo/lynerp/internal/runner"
)

// upOptions holds flags specific to the up command.
type upOptions struct {
	skip        []string
	skipMigrate bool
	noStatic    bool
	dryRun      bool
}

// NewUpCommand creates the up command: the full startup sequence ending in
// an exec of the application server. This is the command a Dockerfile
// ENTRYPOINT invokes.
func NewUpCommand() *cobra.Command {
	opts := &upOptions{}

	upCmd := &cobra.Command{
		Use:   "up [-- server-command...]",
		Short: "Run the startup sequence and exec the application server",
		Long: `Run the complete startup sequence:

  1. wait for every declared dependency (PostgreSQL, Redis, ...)
  2. run schema migrations (fatal on failure)
  3. run best-effort initialization steps (static asset collection, ...)
  4. probe the optional self-check target
  5. exec the application server, replacing this process

A trailing command after "--" replaces the configured server command:

  lynerp-boot up -- gunicorn Lyneerp.wsgi:application --bind 0.0.0.0:9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUp(cmd.Context(), opts, args)
		},
	}

	upCmd.Flags().StringArrayVar(&opts.skip, "skip", nil, "Skip waiting for a dependency by name (repeatable)")
	upCmd.Flags().BoolVar(&opts.skipMigrate, "skip-migrate", false, "Skip the schema migration step")
	upCmd.Flags().BoolVar(&opts.noStatic, "no-collectstatic", false, "Skip the static asset collection step")
	upCmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Print the startup plan without executing it")

	return upCmd
}

func runUp(ctx context.Context, opts *upOptions, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	deps := cfg.ResolveDependencies(opts.skip)
	waitees := make([]probe.Waitee, 0, len(deps))
	for _, d := range deps {
		checker, err := probe.ParseTarget(d.Name, d.Target)
		if err != nil {
			return err
		}
		waitees = append(waitees, probe.Waitee{Checker: checker, Optional: d.Optional})
	}

	// A trailing command wins over everything: the caller knows what they
	// want to run, so the bind preflight is skipped too.
	serverCmd := args
	bindAddr := ""
	if len(serverCmd) == 0 {
		serverCmd = cfg.ServerCommand()
		bindAddr = cfg.BindAddress()
	}

	steps := buildSteps(cfg, opts)

	if opts.dryRun {
		return printPlan(cfg, waitees, steps, serverCmd, opts)
	}

	// SIGTERM is what a container runtime sends on stop; without this the
	// wait loop would ignore it until the budget runs out.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	VerboseLog("phase: %s (%d dependencies, budget %d×%s)",
		model.PhaseWaiting, len(waitees), cfg.Attempts, cfg.Interval)
	waiter := probe.NewWaiter(cfg.Attempts, cfg.Interval)
	if verbose {
		waiter.Verbose = os.Stderr
	}
	if err := waiter.WaitAll(ctx, waitees); err != nil {
		return err
	}

	if opts.skipMigrate {
		fmt.Println("Skipping migrations (--skip-migrate)")
	} else {
		VerboseLog("phase: %s", model.PhaseMigrating)
		fmt.Println("Applying migrations...")
		if err := migrate.NewRunner(cfg).Run(ctx); err != nil {
			return err
		}
	}

	VerboseLog("phase: %s", model.PhaseOptionalSteps)
	stepRunner := runner.NewStepRunner()
	if err := stepRunner.RunAll(ctx, steps); err != nil {
		return err
	}

	if cfg.SelfCheck != "" {
		runSelfCheck(ctx, cfg.SelfCheck)
	}

	if err := probe.CheckBindAddress(bindAddr); err != nil {
		return err
	}

	VerboseLog("phase: %s", model.PhaseServing)
	fmt.Printf("Starting server: %s\n", argvString(serverCmd))
	return runner.ReplaceProcess(serverCmd)
}

// buildSteps assembles the initialization steps: the built-in static asset
// collection for the production path, followed by the boot-file steps in
// declaration order.
func buildSteps(cfg *config.Config, opts *upOptions) []model.Step {
	var steps []model.Step
	if cfg.IsProd() && !opts.noStatic {
		steps = append(steps, model.Step{
			Name:       "collectstatic",
			Command:    []string{"python", "manage.py", "collectstatic", "--noinput"},
			BestEffort: true,
		})
	}
	return append(steps, cfg.Steps...)
}

// runSelfCheck probes the configured readiness target once. The self-check
// is advisory: a failure is logged and the boot proceeds, because the
// target usually only comes up once the server itself is running.
func runSelfCheck(ctx context.Context, target string) {
	checker, err := probe.ParseTarget("self-check", target)
	if err != nil {
		fmt.Printf("warning: invalid self-check target %q: %v\n", target, err)
		return
	}
	if err := checker.Check(ctx); err != nil {
		fmt.Printf("warning: self-check %s failed, continuing: %v\n", checker.Target(), err)
		return
	}
	fmt.Printf("self-check %s OK\n", checker.Target())
}

// printPlan renders the startup plan for --dry-run without touching the
// network or running any command.
func printPlan(cfg *config.Config, waitees []probe.Waitee, steps []model.Step, serverCmd []string, opts *upOptions) error {
	if IsJSONOutput() {
		type planDep struct {
			Name     string `json:"name"`
			Kind     string `json:"kind"`
			Target   string `json:"target"`
			Optional bool   `json:"optional,omitempty"`
		}
		type planStep struct {
			Name       string   `json:"name"`
			Command    []string `json:"command"`
			BestEffort bool     `json:"best_effort,omitempty"`
		}
		plan := struct {
			Dependencies []planDep  `json:"dependencies"`
			Attempts     int        `json:"attempts"`
			Interval     string     `json:"interval"`
			Migrate      bool       `json:"migrate"`
			Steps        []planStep `json:"steps"`
			SelfCheck    string     `json:"self_check,omitempty"`
			Server       []string   `json:"server"`
		}{
			Dependencies: make([]planDep, 0, len(waitees)),
			Attempts:     cfg.Attempts,
			Interval:     cfg.Interval.String(),
			Migrate:      !opts.skipMigrate,
			Steps:        make([]planStep, 0, len(steps)),
			SelfCheck:    cfg.SelfCheck,
			Server:       serverCmd,
		}
		for _, w := range waitees {
			plan.Dependencies = append(plan.Dependencies, planDep{
				Name:     w.Checker.Name(),
				Kind:     string(w.Checker.Kind()),
				Target:   w.Checker.Target(),
				Optional: w.Optional,
			})
		}
		for _, s := range steps {
			plan.Steps = append(plan.Steps, planStep{Name: s.Name, Command: s.Command, BestEffort: s.BestEffort})
		}
		data, err := json.MarshalIndent(plan, "", "  ")
		if err != nil {
			return model.WrapBootError(model.ExitFailure, "failed to encode plan", err)
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println("Startup plan:")
	for _, w := range waitees {
		line := fmt.Sprintf("  wait %s (%s, %s)", w.Checker.Name(), w.Checker.Kind(), w.Checker.Target())
		if w.Optional {
			line += " [optional]"
		}
		fmt.Println(line)
	}
	fmt.Printf("  budget: %d attempts, %s apart\n", cfg.Attempts, cfg.Interval)
	if opts.skipMigrate {
		fmt.Println("  migrate: skipped")
	} else {
		fmt.Printf("  migrate: %s\n", migrationSummary(cfg))
	}
	for _, s := range steps {
		line := fmt.Sprintf("  step %s: %s", s.Name, argvString(s.Command))
		if s.BestEffort {
			line += " [best-effort]"
		}
		fmt.Println(line)
	}
	if cfg.SelfCheck != "" {
		fmt.Printf("  self-check: %s\n", cfg.SelfCheck)
	}
	fmt.Printf("  exec: %s\n", argvString(serverCmd))
	return nil
}

func migrationSummary(cfg *config.Config) string {
	if cfg.Migration.Mode == config.MigrationSQL {
		return fmt.Sprintf("sql files from %s", cfg.Migration.Path)
	}
	return argvString(cfg.Migration.Command)
}

// argvString renders an argv for log lines without the []string{} noise of
// the %v verb.
func argvString(argv []string) string {
	return strings.Join(argv, " ")
}
