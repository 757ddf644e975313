package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sergehoo/lynerp/internal/probe"
)

// NewWaitCommand creates the wait command: block until the given targets
// (or the configured dependencies, when no target is given) accept
// connections, then exit. Useful as a standalone wait-for-it replacement
// in init containers and CI.
func NewWaitCommand() *cobra.Command {
	waitCmd := &cobra.Command{
		Use:   "wait [target...]",
		Short: "Wait for dependencies to accept connections, then exit",
		Long: `Wait until every target accepts connections, then exit 0. With no
arguments the configured dependencies (DB_*/REDIS_* or the boot file) are
waited on. Targets use the same syntax as boot-file dependencies:

  lynerp-boot wait tcp://postgres:5432 redis://redis:6379
  lynerp-boot wait postgres://app:secret@db:5432/lynerp
  lynerp-boot wait docker://lynerp-db

Exits 1 when any target is still unreachable after the retry budget.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWait(cmd, args)
		},
	}

	return waitCmd
}

func runWait(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var waitees []probe.Waitee
	if len(args) == 0 {
		for _, d := range cfg.ResolveDependencies(nil) {
			checker, err := probe.ParseTarget(d.Name, d.Target)
			if err != nil {
				return err
			}
			waitees = append(waitees, probe.Waitee{Checker: checker, Optional: d.Optional})
		}
	} else {
		for _, target := range args {
			checker, err := probe.ParseTarget("", target)
			if err != nil {
				return err
			}
			waitees = append(waitees, probe.Waitee{Checker: checker})
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	waiter := probe.NewWaiter(cfg.Attempts, cfg.Interval)
	if verbose {
		waiter.Verbose = os.Stderr
	}
	if err := waiter.WaitAll(ctx, waitees); err != nil {
		return err
	}

	fmt.Println("All dependencies are ready")
	return nil
}
