package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sergehoo/lynerp/internal/migrate"
	"github.com/sergehoo/lynerp/internal/probe"
)

// NewMigrateCommand creates the migrate command: run the schema migration
// step on its own, without waiting for dependencies or starting a server.
// Intended for one-off jobs and deploy hooks.
func NewMigrateCommand() *cobra.Command {
	var wait bool

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run schema migrations and exit",
		Long: `Run the configured schema migration step and exit with its status.
Migration failures are fatal: the exit code of a failed migration command
is propagated unchanged.

With --wait the database dependency is waited on first, using the same
retry budget as the up command.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if wait {
				checker, err := probe.ParseTarget("Postgres", cfg.DatabaseTarget())
				if err != nil {
					return err
				}
				waiter := probe.NewWaiter(cfg.Attempts, cfg.Interval)
				if verbose {
					waiter.Verbose = os.Stderr
				}
				if err := waiter.Wait(ctx, checker); err != nil {
					return err
				}
			}

			fmt.Println("Applying migrations...")
			if err := migrate.NewRunner(cfg).Run(ctx); err != nil {
				return err
			}
			fmt.Println("Migrations applied")
			return nil
		},
	}

	migrateCmd.Flags().BoolVar(&wait, "wait", false, "Wait for the database before migrating")

	return migrateCmd
}
