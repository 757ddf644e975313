package migrate

import (
	"bytes"
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergehoo/lynerp/internal/config"
	"github.com/sergehoo/lynerp/internal/model"
)

// requireShell skips tests that drive a real shell on platforms without one.
func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
}

func commandRunner(argv ...string) (*Runner, *bytes.Buffer) {
	var out bytes.Buffer
	return &Runner{
		Mode:    config.MigrationCommand,
		Command: argv,
		Out:     &out,
		Err:     &out,
	}, &out
}

// TestRunCommand_Success verifies the happy path: the command's output is
// streamed through and the step reports success.
func TestRunCommand_Success(t *testing.T) {
	requireShell(t)

	r, out := commandRunner("sh", "-c", "echo applying 0001_initial")
	require.NoError(t, r.Run(context.Background()))

	assert.Contains(t, out.String(), "applying 0001_initial")
	assert.Contains(t, out.String(), "Migrations applied")
}

// TestRunCommand_FailurePropagatesExitCode verifies the fatal-failure
// contract: the migration tool's own exit status becomes the boot exit
// status, so an un-migrated schema can never be served.
func TestRunCommand_FailurePropagatesExitCode(t *testing.T) {
	requireShell(t)

	r, _ := commandRunner("sh", "-c", "exit 3")
	err := r.Run(context.Background())
	require.Error(t, err)

	var bootErr *model.BootError
	require.True(t, errors.As(err, &bootErr))
	assert.Equal(t, model.ExitCode(3), bootErr.Code)
}

// TestRunCommand_MissingBinary verifies a command that cannot start fails
// with the generic failure code — there is no tool status to propagate.
func TestRunCommand_MissingBinary(t *testing.T) {
	r, _ := commandRunner("definitely-not-a-real-migration-tool")
	err := r.Run(context.Background())
	require.Error(t, err)

	var bootErr *model.BootError
	require.True(t, errors.As(err, &bootErr))
	assert.Equal(t, model.ExitFailure, bootErr.Code)
}

// TestRunCommand_Empty verifies an empty argv is a usage error, not a
// silent no-op.
func TestRunCommand_Empty(t *testing.T) {
	r, _ := commandRunner()
	err := r.Run(context.Background())
	require.Error(t, err)

	var bootErr *model.BootError
	require.True(t, errors.As(err, &bootErr))
	assert.Equal(t, model.ExitUsage, bootErr.Code)
}

// TestRunSQL_RequiresPath verifies sql mode without a migrations directory
// is rejected before any connection is attempted.
func TestRunSQL_RequiresPath(t *testing.T) {
	r := &Runner{Mode: config.MigrationSQL, DSN: "postgres://u@localhost:5432/db", Out: &bytes.Buffer{}}
	err := r.Run(context.Background())
	require.Error(t, err)

	var bootErr *model.BootError
	require.True(t, errors.As(err, &bootErr))
	assert.Equal(t, model.ExitUsage, bootErr.Code)
}

// TestRun_InvalidMode verifies unknown modes are rejected as usage errors.
func TestRun_InvalidMode(t *testing.T) {
	r := &Runner{Mode: "rsync", Out: &bytes.Buffer{}}
	err := r.Run(context.Background())
	require.Error(t, err)

	var bootErr *model.BootError
	require.True(t, errors.As(err, &bootErr))
	assert.Equal(t, model.ExitUsage, bootErr.Code)
}

// TestNewRunner verifies the runner inherits the resolved configuration.
func TestNewRunner(t *testing.T) {
	cfg := config.FromEnv()
	cfg.Migration.Mode = config.MigrationSQL
	cfg.Migration.Path = "/migrations"
	cfg.Migration.DSN = "postgres://u@db:5432/app"

	r := NewRunner(cfg)
	assert.Equal(t, config.MigrationSQL, r.Mode)
	assert.Equal(t, "/migrations", r.Path)
	assert.Equal(t, "postgres://u@db:5432/app", r.DSN)
}
