// Package model defines the domain types for the lynerp-boot CLI.
//
// The types here describe exactly one container start: which network
// dependencies must be reachable, which initialization steps run before the
// application server, and how failures map to process exit codes.
package model

import (
	"fmt"
	"regexp"
	"strings"
)

// BootPhase represents the lifecycle state of a single boot sequence.
// The phase transitions are strictly linear:
//
//	init → waiting-dependencies → migrating → optional-steps → serving
//
// Terminal phases are "serving" (the boot process has been replaced by the
// application server) and "failed" (non-zero exit during the dependency wait
// or the migration step).
type BootPhase string

const (
	// PhaseInit indicates configuration is being resolved but no external
	// action has been taken yet.
	PhaseInit BootPhase = "init"

	// PhaseWaiting indicates the orchestrator is polling declared network
	// dependencies until they accept connections.
	PhaseWaiting BootPhase = "waiting-dependencies"

	// PhaseMigrating indicates the schema migration step is running.
	// A failure in this phase is fatal.
	PhaseMigrating BootPhase = "migrating"

	// PhaseOptionalSteps indicates best-effort initialization (static-asset
	// collection, self-check) is running. Failures here are tolerated.
	PhaseOptionalSteps BootPhase = "optional-steps"

	// PhaseServing indicates the final server command has replaced the
	// boot process. From the orchestrator's point of view this is terminal.
	PhaseServing BootPhase = "serving"

	// PhaseFailed indicates the boot sequence aborted with a non-zero exit.
	PhaseFailed BootPhase = "failed"
)

// String returns the string representation of BootPhase.
func (p BootPhase) String() string {
	return string(p)
}

// IsValid checks whether the BootPhase value is one of the predefined phases.
func (p BootPhase) IsValid() bool {
	switch p {
	case PhaseInit, PhaseWaiting, PhaseMigrating, PhaseOptionalSteps, PhaseServing, PhaseFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether the phase ends the boot sequence.
func (p BootPhase) IsTerminal() bool {
	return p == PhaseServing || p == PhaseFailed
}

// DependencyKind identifies how a dependency's readiness is verified.
// The kind is derived from the scheme of the dependency target URL.
type DependencyKind string

const (
	// KindTCP verifies readiness with a raw TCP connection attempt.
	// This is the canonical check inherited from the shell entrypoints.
	KindTCP DependencyKind = "tcp"

	// KindPostgres verifies readiness by completing a PostgreSQL startup
	// handshake and ping. Stronger than KindTCP: the server must accept
	// the connection AND authenticate the configured credentials.
	KindPostgres DependencyKind = "postgres"

	// KindRedis verifies readiness with a Redis PING command.
	KindRedis DependencyKind = "redis"

	// KindHTTP verifies readiness with an HTTP GET returning a non-error
	// status (2xx or 3xx).
	KindHTTP DependencyKind = "http"

	// KindDocker verifies readiness by inspecting a container through the
	// Docker Engine API: it must be running and, if it declares a
	// HEALTHCHECK, report healthy. Requires the Docker socket to be
	// reachable from inside the boot container.
	KindDocker DependencyKind = "docker"
)

// String returns the string representation of DependencyKind.
func (k DependencyKind) String() string {
	return string(k)
}

// IsValid checks whether the DependencyKind is one of the supported kinds.
func (k DependencyKind) IsValid() bool {
	switch k {
	case KindTCP, KindPostgres, KindRedis, KindHTTP, KindDocker:
		return true
	default:
		return false
	}
}

// ParseDependencyKind converts a string (typically a URL scheme) to a
// DependencyKind. Scheme aliases are normalized: postgresql→postgres,
// rediss→redis, https→http.
func ParseDependencyKind(s string) (DependencyKind, error) {
	switch strings.ToLower(s) {
	case "tcp":
		return KindTCP, nil
	case "postgres", "postgresql":
		return KindPostgres, nil
	case "redis", "rediss":
		return KindRedis, nil
	case "http", "https":
		return KindHTTP, nil
	case "docker":
		return KindDocker, nil
	default:
		return "", fmt.Errorf("invalid dependency kind: %q (valid: tcp, postgres, redis, http, docker)", s)
	}
}

// Dependency declares a network service the application cannot start
// without. Dependencies are immutable for the process lifetime: they are
// read from environment variables (with fixed fallback defaults) or the
// boot file before the wait loop starts.
type Dependency struct {
	// Name is the display name used in progress lines and error messages
	// (e.g. "Postgres", "Redis").
	Name string `json:"name" yaml:"name"`

	// Target is the dependency address as a URL, e.g. "tcp://postgres:5432",
	// "redis://redis:6379/0" or "docker://lynerp-db". A bare "host:port"
	// is accepted and treated as tcp.
	Target string `json:"target" yaml:"target"`

	// Optional marks the dependency as best-effort: an unreachable optional
	// dependency is logged but does not abort the boot sequence.
	Optional bool `json:"optional,omitempty" yaml:"optional,omitempty"`
}

// Step is one initialization command in the startup sequence. Ordering of
// steps is significant and fixed before the sequence starts.
type Step struct {
	// Name is the display name for progress output (e.g. "collectstatic").
	Name string `json:"name" yaml:"name"`

	// Command is the argv to execute. Must not be empty.
	Command []string `json:"command" yaml:"command"`

	// BestEffort marks the step as tolerated-on-failure: a non-zero exit is
	// logged and ignored instead of aborting the boot sequence. The
	// migration step is never best-effort.
	BestEffort bool `json:"bestEffort,omitempty" yaml:"bestEffort,omitempty"`
}

// Validate checks that the step has a name and a non-empty command.
func (s *Step) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("step: name must not be empty")
	}
	if len(s.Command) == 0 {
		return fmt.Errorf("step %q: command must not be empty", s.Name)
	}
	if s.Command[0] == "" {
		return fmt.Errorf("step %q: command executable must not be empty", s.Name)
	}
	return nil
}

// nameRegex validates dependency and step names: alphanumeric plus hyphens
// and underscores, starting and ending with an alphanumeric character.
var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]*[a-zA-Z0-9]$|^[a-zA-Z0-9]$`)

// ValidateName checks if the given name is usable as a dependency or step
// display name. Names appear verbatim in log lines and JSON reports, so
// whitespace and control characters are rejected.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("invalid name %q: must contain only alphanumeric characters, hyphens and underscores, and start/end with alphanumeric", name)
	}
	return nil
}

// ExitCode defines the process exit codes of lynerp-boot. These codes allow
// container orchestrators and CI systems to programmatically determine why
// a boot attempt terminated.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitFailure indicates a fatal boot condition: a dependency stayed
	// unreachable past the retry budget, the migration step failed without
	// reporting its own exit status, or the final exec failed.
	ExitFailure ExitCode = 1

	// ExitUsage indicates invalid flags, arguments or boot file contents.
	ExitUsage ExitCode = 2
)

// BootError is a custom error type that carries an exit code. The CLI layer
// translates BootErrors into process exit statuses, so a dependency timeout
// and a migration failure both surface as the codes documented above, while
// a failed migration command propagates the tool's own exit status.
type BootError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *BootError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *BootError) Unwrap() error {
	return e.Err
}

// NewBootError creates a new BootError with the given exit code and message.
func NewBootError(code ExitCode, message string) *BootError {
	return &BootError{Code: code, Message: message}
}

// WrapBootError creates a new BootError that wraps an existing error.
func WrapBootError(code ExitCode, message string, err error) *BootError {
	return &BootError{Code: code, Message: message, Err: err}
}
