package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sergehoo/lynerp/internal/model"
)

// writeFile creates a boot file fixture inside a temp directory and returns
// its path. t.TempDir handles cleanup.
func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const yamlBootFile = `
attempts: 10
interval: 500ms
dependencies:
  - name: Postgres
    target: tcp://db:5432
  - name: Keycloak
    target: http://keycloak:8080/health/ready
    optional: true
steps:
  - name: seed-accounts
    command: ["python", "manage.py", "seed_syscohada"]
    bestEffort: true
migrate:
  mode: command
  command: ["python", "manage.py", "migrate", "--noinput", "--database", "default"]
server:
  prod: ["gunicorn", "Lyneerp.wsgi:application", "--bind", "0.0.0.0:8000"]
  bind: 0.0.0.0:8000
selfCheck: http://127.0.0.1:8000/healthz
`

// TestLoadFile_YAML verifies full YAML boot file parsing.
func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, "lynerp-boot.yaml", yamlBootFile)

	f, err := LoadFile(path)
	require.NoError(t, err)

	require.NotNil(t, f.Attempts)
	assert.Equal(t, 10, *f.Attempts)
	assert.Equal(t, "500ms", f.Interval)

	require.Len(t, f.Dependencies, 2)
	assert.Equal(t, "Postgres", f.Dependencies[0].Name)
	assert.False(t, f.Dependencies[0].Optional)
	assert.Equal(t, "Keycloak", f.Dependencies[1].Name)
	assert.True(t, f.Dependencies[1].Optional)

	require.Len(t, f.Steps, 1)
	assert.Equal(t, "seed-accounts", f.Steps[0].Name)
	assert.True(t, f.Steps[0].BestEffort)

	require.NotNil(t, f.Migrate)
	assert.Equal(t, "command", f.Migrate.Mode)

	require.NotNil(t, f.Server)
	assert.Equal(t, "0.0.0.0:8000", f.Server.Bind)
	assert.Equal(t, "http://127.0.0.1:8000/healthz", f.SelfCheck)
}

// TestLoadFile_JSONC verifies that comments and trailing commas are
// stripped before parsing, matching how hand-edited deployment files look.
func TestLoadFile_JSONC(t *testing.T) {
	path := writeFile(t, "lynerp-boot.jsonc", `{
  // shrink the budget for CI
  "attempts": 3,
  "interval": "1s",
  "dependencies": [
    {"name": "Postgres", "target": "tcp://db:5432"},
  ],
}`)

	f, err := LoadFile(path)
	require.NoError(t, err)

	require.NotNil(t, f.Attempts)
	assert.Equal(t, 3, *f.Attempts)
	require.Len(t, f.Dependencies, 1)
	assert.Equal(t, "tcp://db:5432", f.Dependencies[0].Target)
}

// TestLoadFile_Errors covers the usage-error paths: missing file, unknown
// extension, malformed contents. All must carry ExitUsage so a broken boot
// file fails the container start with a distinct code.
func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	requireUsageError(t, err)

	_, err = LoadFile(writeFile(t, "boot.toml", "attempts = 3"))
	requireUsageError(t, err)

	_, err = LoadFile(writeFile(t, "boot.yaml", "attempts: [not a number"))
	requireUsageError(t, err)

	_, err = LoadFile(writeFile(t, "boot.json", `{"attempts": }`))
	requireUsageError(t, err)
}

func requireUsageError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var bootErr *model.BootError
	require.True(t, errors.As(err, &bootErr), "expected a BootError, got %T", err)
	assert.Equal(t, model.ExitUsage, bootErr.Code)
}

// TestApply verifies the merge semantics: declared fields override, absent
// fields keep their env-derived values, steps append.
func TestApply(t *testing.T) {
	clearBootEnv(t)
	cfg := FromEnv()

	attempts := 7
	f := &File{
		Attempts: &attempts,
		Interval: "250ms",
		Migrate:  &FileMigrate{Mode: "sql", Path: "/migrations"},
		Server:   &FileServer{Bind: "0.0.0.0:9100"},
	}
	require.NoError(t, f.Apply(cfg))

	assert.Equal(t, 7, cfg.Attempts)
	assert.Equal(t, 250*time.Millisecond, cfg.Interval)
	assert.Equal(t, MigrationSQL, cfg.Migration.Mode)
	assert.Equal(t, "/migrations", cfg.Migration.Path)
	assert.Equal(t, "0.0.0.0:9100", cfg.Bind)

	// Untouched fields keep the env defaults.
	assert.Equal(t, "postgres", cfg.DBHost)
	assert.Nil(t, cfg.Dependencies)
}

// TestApply_BareSecondsInterval verifies the seconds shorthand is accepted
// in the boot file, same as in BOOT_INTERVAL.
func TestApply_BareSecondsInterval(t *testing.T) {
	clearBootEnv(t)
	cfg := FromEnv()

	require.NoError(t, (&File{Interval: "2"}).Apply(cfg))
	assert.Equal(t, 2*time.Second, cfg.Interval)

	err := (&File{Interval: "-1s"}).Apply(cfg)
	requireUsageError(t, err)
}

// TestFindFile verifies the discovery order and the not-found case.
func TestFindFile(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, "", FindFile(dir))

	// Later names in the probe order lose to earlier ones.
	jsonPath := filepath.Join(dir, "lynerp-boot.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte("{}"), 0o644))
	assert.Equal(t, jsonPath, FindFile(dir))

	yamlPath := filepath.Join(dir, "lynerp-boot.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(""), 0o644))
	assert.Equal(t, yamlPath, FindFile(dir))
}

// TestLoad_EndToEnd verifies the full resolution pipeline with an explicit
// boot file path.
func TestLoad_EndToEnd(t *testing.T) {
	clearBootEnv(t)
	t.Setenv("DJANGO_ENV", "prod")

	path := writeFile(t, "lynerp-boot.yaml", `
attempts: 4
dependencies:
  - name: Postgres
    target: tcp://db:5432
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Attempts)
	assert.True(t, cfg.IsProd())
	deps := cfg.ResolveDependencies(nil)
	require.Len(t, deps, 1)
	assert.Equal(t, "tcp://db:5432", deps[0].Target)
}

// TestLoad_InvalidMergedConfig verifies that validation runs after the
// merge, rejecting boot files that produce an unusable configuration.
func TestLoad_InvalidMergedConfig(t *testing.T) {
	clearBootEnv(t)

	path := writeFile(t, "lynerp-boot.yaml", "attempts: 0\n")
	_, err := Load(path)
	requireUsageError(t, err)
}
