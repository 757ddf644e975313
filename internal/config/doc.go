// Package config resolves the boot configuration for a container start.
//
// Configuration comes from three layers, lowest precedence first:
//
//  1. built-in defaults matching the historical shell entrypoints
//     (DB_HOST=postgres, DB_PORT=5432, REDIS_HOST=redis, ...)
//  2. environment variables
//  3. an optional boot file (lynerp-boot.yaml / .yml / .jsonc / .json)
//     declaring dependencies, extra steps, the migration mode and the
//     server commands
//
// CLI flags are applied on top by the cli package. The resolved Config is
// immutable for the process lifetime.
package config
