// Package config — config.go resolves configuration from the process
// environment with the fixed fallback defaults inherited from the shell
// entrypoints this tool replaces.
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sergehoo/lynerp/internal/model"
)

// Defaults for the retry budget. 120 attempts spaced 1 second apart gives
// the documented ~120-second ceiling per dependency.
const (
	DefaultAttempts = 120
	DefaultInterval = time.Second
)

// MigrationMode selects how the schema migration step is executed.
type MigrationMode string

const (
	// MigrationCommand runs an external migration command (the Django
	// manage.py path). This is the default and mirrors the shell original.
	MigrationCommand MigrationMode = "command"

	// MigrationSQL applies a directory of SQL migration files directly
	// against the configured PostgreSQL DSN.
	MigrationSQL MigrationMode = "sql"
)

// IsValid checks whether the MigrationMode is one of the supported modes.
func (m MigrationMode) IsValid() bool {
	return m == MigrationCommand || m == MigrationSQL
}

// Migration describes the schema migration step. Exactly one of Command or
// Path is used depending on Mode.
type Migration struct {
	// Mode selects command or sql execution.
	Mode MigrationMode

	// Command is the argv for MigrationCommand mode.
	Command []string

	// Path is the SQL migrations directory for MigrationSQL mode.
	Path string

	// DSN overrides the database connection string for MigrationSQL mode.
	// When empty, the DSN derived from DB_* variables is used.
	DSN string
}

// Config holds the complete resolved boot configuration. All fields are
// fixed before the startup sequence begins.
type Config struct {
	// DBHost and DBPort locate the primary datastore.
	DBHost string
	DBPort int

	// DBName, DBUser and DBPassword are the datastore credentials. When all
	// of name and user are present, the datastore wait is upgraded from a
	// raw TCP dial to a real PostgreSQL ping.
	DBName     string
	DBUser     string
	DBPassword string

	// RedisHost and RedisPort locate the cache service.
	RedisHost     string
	RedisPort     int
	RedisPassword string

	// Env is the deployment environment name from DJANGO_ENV ("dev", "prod").
	Env string

	// Debug mirrors the DEBUG variable. A truthy DEBUG forces the
	// development launch path regardless of Env.
	Debug bool

	// Bind is the production server bind address.
	Bind string

	// Workers is the production server worker count.
	Workers int

	// Attempts and Interval define the per-dependency retry budget.
	Attempts int
	Interval time.Duration

	// Dependencies is the resolved dependency list. When nil, the defaults
	// derived from the DB_*/REDIS_* variables apply (see Resolve).
	Dependencies []model.Dependency

	// Steps are extra initialization steps from the boot file, executed
	// after the migration step in declaration order.
	Steps []model.Step

	// Migration describes the schema migration step.
	Migration Migration

	// SelfCheck is an optional readiness target probed once, best-effort,
	// after the initialization steps (e.g. "http://127.0.0.1:8000/healthz").
	SelfCheck string

	// DevCommand and ProdCommand are the final server argvs. Empty slices
	// select the built-in Django commands.
	DevCommand  []string
	ProdCommand []string
}

// FromEnv builds a Config from environment variables, applying the fixed
// fallback defaults of the shell entrypoints for anything unset.
func FromEnv() *Config {
	return &Config{
		DBHost:        getEnv("DB_HOST", "postgres"),
		DBPort:        getEnvInt("DB_PORT", 5432),
		DBName:        getEnv("DB_NAME", ""),
		DBUser:        getEnv("DB_USER", ""),
		DBPassword:    os.Getenv("DB_PASSWORD"), // may contain spaces/specials, no trimming
		RedisHost:     getEnv("REDIS_HOST", "redis"),
		RedisPort:     getEnvInt("REDIS_PORT", 6379),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		Env:           strings.ToLower(getEnv("DJANGO_ENV", "dev")),
		Debug:         envBool("DEBUG"),
		Bind:          getEnv("BIND", "0.0.0.0:8000"),
		Workers:       getEnvInt("GUNICORN_WORKERS", 3),
		Attempts:      getEnvInt("BOOT_ATTEMPTS", DefaultAttempts),
		Interval:      getEnvDuration("BOOT_INTERVAL", DefaultInterval),
		Migration: Migration{
			Mode:    MigrationCommand,
			Command: []string{"python", "manage.py", "migrate", "--noinput"},
		},
	}
}

// IsProd reports whether the production launch path is selected.
// DJANGO_ENV=prod (or "production") selects gunicorn; a truthy DEBUG wins
// over DJANGO_ENV and forces the development server, matching the behavior
// of the original settings split.
func (c *Config) IsProd() bool {
	if c.Debug {
		return false
	}
	return c.Env == "prod" || c.Env == "production"
}

// DatabaseTarget returns the dependency target for the primary datastore.
// With full credentials configured the target is a postgres:// DSN and the
// wait performs an authenticated ping; otherwise it degrades to the raw
// tcp:// dial of the original entrypoint scripts.
func (c *Config) DatabaseTarget() string {
	if c.DBName != "" && c.DBUser != "" {
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort)),
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable&connect_timeout=5",
		}
		if c.DBPassword == "" {
			u.User = url.User(c.DBUser)
		}
		return u.String()
	}
	return "tcp://" + net.JoinHostPort(c.DBHost, strconv.Itoa(c.DBPort))
}

// RedisTarget returns the dependency target for the cache service.
func (c *Config) RedisTarget() string {
	u := url.URL{
		Scheme: "redis",
		Host:   net.JoinHostPort(c.RedisHost, strconv.Itoa(c.RedisPort)),
	}
	if c.RedisPassword != "" {
		u.User = url.UserPassword("", c.RedisPassword)
	}
	return u.String()
}

// ResolveDependencies returns the dependency list to wait on. An explicit
// list from the boot file wins; otherwise the two defaults derived from the
// DB_*/REDIS_* variables apply. Names in skip (matched case-insensitively)
// are removed from the result.
func (c *Config) ResolveDependencies(skip []string) []model.Dependency {
	deps := c.Dependencies
	if deps == nil {
		deps = []model.Dependency{
			{Name: "Postgres", Target: c.DatabaseTarget()},
			{Name: "Redis", Target: c.RedisTarget()},
		}
	}

	if len(skip) == 0 {
		return deps
	}

	skipped := make(map[string]bool, len(skip))
	for _, s := range skip {
		skipped[strings.ToLower(s)] = true
	}

	kept := make([]model.Dependency, 0, len(deps))
	for _, d := range deps {
		if !skipped[strings.ToLower(d.Name)] {
			kept = append(kept, d)
		}
	}
	return kept
}

// ServerCommand returns the final server argv for the selected launch path.
// Explicit commands from the boot file take precedence over the built-in
// Django commands.
func (c *Config) ServerCommand() []string {
	if c.IsProd() {
		if len(c.ProdCommand) > 0 {
			return c.ProdCommand
		}
		return []string{
			"gunicorn", "Lyneerp.wsgi:application",
			"--bind", c.Bind,
			"--workers", strconv.Itoa(c.Workers),
		}
	}
	if len(c.DevCommand) > 0 {
		return c.DevCommand
	}
	return []string{"python", "manage.py", "runserver", "0.0.0.0:8000"}
}

// BindAddress returns the address the final server will bind, used for the
// pre-exec port preflight. The development server always binds 0.0.0.0:8000.
// Returns "" when the final command comes from the boot file or passthrough
// arguments, in which case the bind address is unknown and no preflight runs.
func (c *Config) BindAddress() string {
	if c.IsProd() {
		if len(c.ProdCommand) > 0 {
			return ""
		}
		return c.Bind
	}
	if len(c.DevCommand) > 0 {
		return ""
	}
	return "0.0.0.0:8000"
}

// MigrationDSN returns the connection string for MigrationSQL mode:
// the explicit override when present, the DB_*-derived DSN otherwise.
func (c *Config) MigrationDSN() string {
	if c.Migration.DSN != "" {
		return c.Migration.DSN
	}
	return c.DatabaseTarget()
}

// Validate checks cross-field invariants of the resolved configuration.
func (c *Config) Validate() error {
	if c.Attempts < 1 {
		return fmt.Errorf("attempts must be at least 1, got %d", c.Attempts)
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", c.Interval)
	}
	if !c.Migration.Mode.IsValid() {
		return fmt.Errorf("invalid migration mode %q (valid: command, sql)", c.Migration.Mode)
	}
	if c.Migration.Mode == MigrationSQL && c.Migration.Path == "" {
		return fmt.Errorf("migration mode %q requires a migrations path", MigrationSQL)
	}
	for i := range c.Dependencies {
		d := &c.Dependencies[i]
		if err := model.ValidateName(d.Name); err != nil {
			return fmt.Errorf("dependency %d: %w", i, err)
		}
		if d.Target == "" {
			return fmt.Errorf("dependency %q: target must not be empty", d.Name)
		}
	}
	for i := range c.Steps {
		if err := c.Steps[i].Validate(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

// getEnv returns the trimmed value of key, or def when unset or blank.
func getEnv(key, def string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return def
}

// getEnvInt returns the integer value of key, or def when unset or
// unparseable. A malformed value falls back silently — the shell originals
// did the same, and a boot tool must not crash on a sloppy environment.
func getEnvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return n
}

// getEnvDuration returns the duration value of key, accepting both Go
// duration syntax ("1s", "500ms") and bare seconds ("1").
func getEnvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil && n > 0 {
		return time.Duration(n) * time.Second
	}
	return def
}

// envBool interprets key with the truthiness rules of the original Python
// settings: "1", "true", "yes" and "on" (case-insensitive) are true,
// everything else — including unset — is false.
func envBool(key string) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
