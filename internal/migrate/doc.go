// Package migrate implements the schema migration step of the boot
// sequence. Migration failure is always fatal: the application cannot run
// against an un-migrated schema, so the step propagates the failing exit
// status instead of tolerating it.
//
// Two execution modes exist:
//
//   - command: run an external migration command (the Django
//     "manage.py migrate --noinput" path). Default, mirrors the shell
//     entrypoints this tool replaces.
//   - sql: apply a directory of SQL migration files directly against the
//     configured PostgreSQL DSN using golang-migrate. Meant for init
//     containers that ship plain SQL instead of a framework.
package migrate
