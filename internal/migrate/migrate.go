package migrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	gomigrate "github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // file:// migration source
	_ "github.com/jackc/pgx/v5/stdlib"                   // database/sql driver for golang-migrate

	"github.com/sergehoo/lynerp/internal/config"
	"github.com/sergehoo/lynerp/internal/model"
)

// Runner executes the schema migration step.
type Runner struct {
	// Mode selects command or sql execution.
	Mode config.MigrationMode

	// Command is the argv for command mode.
	Command []string

	// DSN is the PostgreSQL connection string for sql mode.
	DSN string

	// Path is the SQL migrations directory for sql mode.
	Path string

	// Out and Err receive the migration tool's output. Default to the
	// process streams — migration output belongs in the container log.
	Out io.Writer
	Err io.Writer
}

// NewRunner builds a Runner from the resolved boot configuration.
func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		Mode:    cfg.Migration.Mode,
		Command: cfg.Migration.Command,
		DSN:     cfg.MigrationDSN(),
		Path:    cfg.Migration.Path,
		Out:     os.Stdout,
		Err:     os.Stderr,
	}
}

// Run executes the migration step. Any failure is returned as a BootError:
// in command mode the tool's own exit status is propagated as the code, so
// the container exit status tells the operator exactly what the migration
// tool reported.
func (r *Runner) Run(ctx context.Context) error {
	switch r.Mode {
	case config.MigrationCommand:
		return r.runCommand(ctx)
	case config.MigrationSQL:
		return r.runSQL(ctx)
	default:
		return model.NewBootError(model.ExitUsage,
			fmt.Sprintf("invalid migration mode %q", r.Mode))
	}
}

// runCommand executes the external migration command with inherited
// environment and streams its output through.
func (r *Runner) runCommand(ctx context.Context) error {
	if len(r.Command) == 0 {
		return model.NewBootError(model.ExitUsage, "migration command is empty")
	}

	fmt.Fprintf(r.out(), "Applying migrations: %v\n", r.Command)

	cmd := exec.CommandContext(ctx, r.Command[0], r.Command[1:]...)
	cmd.Stdout = r.out()
	cmd.Stderr = r.errOut()
	cmd.Stdin = os.Stdin

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
			return model.WrapBootError(model.ExitCode(exitErr.ExitCode()),
				"schema migration failed", err)
		}
		// Signal death, missing binary, or a start failure: no tool exit
		// status exists to propagate.
		return model.WrapBootError(model.ExitFailure,
			"schema migration failed to run", err)
	}

	fmt.Fprintln(r.out(), "Migrations applied")
	return nil
}

// runSQL applies the SQL migration directory with golang-migrate.
// golang-migrate takes a PostgreSQL advisory lock, so concurrent replicas
// racing through their boot sequences apply the schema exactly once.
func (r *Runner) runSQL(ctx context.Context) error {
	if r.Path == "" {
		return model.NewBootError(model.ExitUsage, "migration mode sql requires a migrations path")
	}

	abs, err := filepath.Abs(r.Path)
	if err != nil {
		return model.WrapBootError(model.ExitUsage,
			fmt.Sprintf("invalid migrations path %q", r.Path), err)
	}

	fmt.Fprintf(r.out(), "Applying SQL migrations from %s\n", abs)

	db, err := sql.Open("pgx", r.DSN)
	if err != nil {
		return model.WrapBootError(model.ExitFailure, "failed to open database connection", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return model.WrapBootError(model.ExitFailure, "failed to ping database", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{
		MigrationsTable: "schema_migrations",
	})
	if err != nil {
		return model.WrapBootError(model.ExitFailure, "failed to create migration driver", err)
	}

	m, err := gomigrate.NewWithDatabaseInstance("file://"+abs, "postgres", driver)
	if err != nil {
		return model.WrapBootError(model.ExitFailure, "failed to create migrate instance", err)
	}

	err = m.Up()
	if err != nil && !errors.Is(err, gomigrate.ErrNoChange) {
		return model.WrapBootError(model.ExitFailure, "schema migration failed", err)
	}

	if errors.Is(err, gomigrate.ErrNoChange) {
		fmt.Fprintln(r.out(), "No migrations to apply (schema is up to date)")
	} else {
		fmt.Fprintln(r.out(), "Migrations applied")
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, gomigrate.ErrNilVersion) {
		return model.WrapBootError(model.ExitFailure, "failed to read schema version", err)
	}
	if err == nil {
		fmt.Fprintf(r.out(), "Schema version: %d (dirty: %t)\n", version, dirty)
		if dirty {
			fmt.Fprintln(r.errOut(), "warning: schema is in a dirty state, manual intervention may be required")
		}
	}
	return nil
}

func (r *Runner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *Runner) errOut() io.Writer {
	if r.Err != nil {
		return r.Err
	}
	return os.Stderr
}
