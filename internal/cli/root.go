// Package cli implements the cobra-based CLI commands for lynerp-boot.
//
// Each subcommand (up, wait, migrate, check) is defined in its own file
// within this package. This file defines the root command that serves as
// the parent for all subcommands and handles global flags.
package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/sergehoo/lynerp/internal/config"
	"github.com/sergehoo/lynerp/internal/model"
)

// Global flag variables shared across all subcommands. They are bound to
// cobra persistent flags on the root command, which makes them available
// to every subcommand automatically.
var (
	// jsonOutput controls whether command output is formatted as JSON.
	jsonOutput bool

	// verbose enables per-attempt logging on stderr during dependency waits.
	verbose bool

	// configPath is an explicit boot file path. Empty means discovery in
	// the working directory.
	configPath string

	// attemptsFlag and intervalFlag override the retry budget. Zero/empty
	// means "not set" — the env/boot-file values apply.
	attemptsFlag int
	intervalFlag string
)

// Version, Commit and Date are set at build time via ldflags. They are
// injected from the main package to display version information.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// NewRootCommand creates and configures the root cobra command.
//
// The root command itself does not perform any action — it only provides
// help text and global flags. Actual functionality lives in the
// subcommands (up, wait, migrate, check).
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lynerp-boot",
		Short: "Container startup orchestrator for the LynERP application",
		Long: `lynerp-boot is the container entrypoint for LynERP. It blocks until the
declared network dependencies (PostgreSQL, Redis, ...) accept connections,
runs schema migrations, performs best-effort initialization, and finally
replaces itself with the application server via exec.

Configuration comes from environment variables (DB_HOST, REDIS_HOST,
DJANGO_ENV, BIND, ...) with the same defaults as the shell entrypoints it
replaces, plus an optional lynerp-boot.yaml/.jsonc boot file.`,

		// We handle error output and exit codes ourselves for a stable
		// container-log contract.
		SilenceUsage:  true,
		SilenceErrors: true,

		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, Date),
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log every failed connection attempt to stderr")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Boot file path (default: discover lynerp-boot.{yaml,yml,jsonc,json})")
	rootCmd.PersistentFlags().IntVar(&attemptsFlag, "attempts", 0, "Override the per-dependency retry budget")
	rootCmd.PersistentFlags().StringVar(&intervalFlag, "interval", "", "Override the spacing between attempts (e.g. 1s, 500ms)")

	rootCmd.AddCommand(NewUpCommand())
	rootCmd.AddCommand(NewWaitCommand())
	rootCmd.AddCommand(NewMigrateCommand())
	rootCmd.AddCommand(NewCheckCommand())

	return rootCmd
}

// Execute runs the root command and handles exit codes. This is the main
// entry point called from main.go.
//
// BootErrors carry their own exit codes — a dependency timeout and a
// failed migration both exit 1, a propagated migration-tool status keeps
// its value, bad usage exits 2. Anything else defaults to 1.
func Execute(rootCmd *cobra.Command) {
	if err := rootCmd.Execute(); err != nil {
		var bootErr *model.BootError
		if errors.As(err, &bootErr) {
			printError(bootErr.Message, bootErr.Err)
			os.Exit(int(bootErr.Code))
		}

		printError(err.Error(), nil)
		os.Exit(int(model.ExitFailure))
	}
}

// printError outputs an error message in the appropriate format
// (JSON or text) based on the --json global flag. Errors go to stderr in
// both modes — stdout is reserved for boot progress and command output.
func printError(message string, underlying error) {
	if jsonOutput {
		errObj := map[string]interface{}{
			"error": map[string]interface{}{
				"message": message,
			},
		}
		if underlying != nil {
			if errMap, ok := errObj["error"].(map[string]interface{}); ok {
				errMap["detail"] = underlying.Error()
			}
		}
		data, _ := json.MarshalIndent(errObj, "", "  ")
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		if underlying != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", message, underlying)
		} else {
			fmt.Fprintf(os.Stderr, "Error: %s\n", message)
		}
	}
}

// VerboseLog prints a message to stderr only when verbose mode is enabled.
func VerboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[verbose] "+format+"\n", args...)
	}
}

// IsJSONOutput returns whether the --json flag is set.
func IsJSONOutput() bool {
	return jsonOutput
}

// loadConfig resolves the boot configuration and applies the global
// retry-budget flag overrides on top.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if attemptsFlag > 0 {
		cfg.Attempts = attemptsFlag
	}
	if intervalFlag != "" {
		d, err := parseIntervalFlag(intervalFlag)
		if err != nil {
			return nil, model.WrapBootError(model.ExitUsage,
				fmt.Sprintf("invalid --interval %q", intervalFlag), err)
		}
		cfg.Interval = d
	}
	return cfg, nil
}

// parseIntervalFlag accepts a Go duration ("1s", "500ms") or a bare
// number of seconds ("1"), matching the boot-file interval syntax.
func parseIntervalFlag(s string) (time.Duration, error) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs <= 0 {
			return 0, fmt.Errorf("interval must be positive")
		}
		return time.Duration(secs) * time.Second, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("interval must be positive")
	}
	return d, nil
}
