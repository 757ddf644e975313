// Package model defines the domain types and value objects for the
// lynerp-boot CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (Dependency, Step, BootPhase, etc.) describe a single
// container start: they are built from environment variables and the
// optional boot file when the process starts, and are never mutated
// afterwards — there is no state carried between invocations.
//
// The package also defines exit codes (ExitCode) and a custom error type
// (BootError) that carries exit codes for proper OS process exit handling.
package model
