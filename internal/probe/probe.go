package probe

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sergehoo/lynerp/internal/model"
)

// Checker verifies one dependency with a single connection attempt.
// Implementations must be safe to call repeatedly — the Waiter invokes
// Check once per attempt until it succeeds or the budget runs out.
type Checker interface {
	// Name is the display name used in progress lines and errors.
	Name() string

	// Kind identifies how readiness is verified.
	Kind() model.DependencyKind

	// Target is the address shown to the user. Implementations must redact
	// credentials (the postgres checker displays host:port, not the DSN).
	Target() string

	// Check performs one readiness attempt. A nil return means the
	// dependency is ready.
	Check(ctx context.Context) error
}

// stillWaitingEvery controls how often a "still waiting" line is printed
// during a long wait, so container logs show liveness without one line per
// second for two minutes.
const stillWaitingEvery = 15

// Waiter polls a Checker until it succeeds or a fixed attempt budget is
// exhausted. The budget is attempts × interval; there is no other timeout
// and no concurrency — dependencies are waited on one after another.
type Waiter struct {
	// Attempts is the retry budget per dependency. Must be at least 1.
	Attempts int

	// Interval is the spacing between attempts. No sleep happens after the
	// final attempt.
	Interval time.Duration

	// Out receives progress lines. Defaults to os.Stdout — the progress
	// contract of a container entrypoint is its stdout log.
	Out io.Writer

	// Verbose, when non-nil, receives one line per failed attempt with the
	// underlying error. Wired to stderr by the --verbose flag.
	Verbose io.Writer
}

// NewWaiter creates a Waiter writing progress to stdout.
func NewWaiter(attempts int, interval time.Duration) *Waiter {
	return &Waiter{
		Attempts: attempts,
		Interval: interval,
		Out:      os.Stdout,
	}
}

// Wait polls c until it reports ready. On success it returns nil before the
// budget is exhausted; on exhaustion it returns a BootError with ExitFailure
// naming the unreachable dependency. The boot sequence never proceeds past
// a failed required dependency — it fails fast and loud instead of starting
// the application against a broken backend.
//
// Context cancellation aborts the wait immediately with the context error.
func (w *Waiter) Wait(ctx context.Context, c Checker) error {
	out := w.Out
	if out == nil {
		out = os.Stdout
	}

	fmt.Fprintf(out, "Waiting for %s (%s)...\n", c.Name(), c.Target())

	var lastErr error
	for attempt := 1; attempt <= w.Attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return model.WrapBootError(model.ExitFailure,
				fmt.Sprintf("wait for %s interrupted", c.Name()), err)
		}

		lastErr = c.Check(ctx)
		if lastErr == nil {
			if attempt == 1 {
				fmt.Fprintf(out, "%s OK\n", c.Name())
			} else {
				fmt.Fprintf(out, "%s OK (attempt %d/%d)\n", c.Name(), attempt, w.Attempts)
			}
			return nil
		}

		if w.Verbose != nil {
			fmt.Fprintf(w.Verbose, "[verbose] %s attempt %d/%d: %v\n", c.Name(), attempt, w.Attempts, lastErr)
		}
		if attempt%stillWaitingEvery == 0 && attempt < w.Attempts {
			fmt.Fprintf(out, "still waiting for %s (attempt %d/%d)\n", c.Name(), attempt, w.Attempts)
		}

		if attempt < w.Attempts {
			select {
			case <-ctx.Done():
				return model.WrapBootError(model.ExitFailure,
					fmt.Sprintf("wait for %s interrupted", c.Name()), ctx.Err())
			case <-time.After(w.Interval):
			}
		}
	}

	return model.WrapBootError(model.ExitFailure,
		fmt.Sprintf("%s (%s) is still unreachable after %d attempts", c.Name(), c.Target(), w.Attempts),
		lastErr)
}

// Waitee pairs a Checker with its failure policy for WaitAll.
type Waitee struct {
	Checker Checker

	// Optional marks the dependency as best-effort: exhaustion is logged
	// and the sequence continues.
	Optional bool
}

// WaitAll waits for each dependency in declaration order. A required
// dependency aborts on exhaustion; an optional one logs the failure and
// lets the sequence continue.
func (w *Waiter) WaitAll(ctx context.Context, deps []Waitee) error {
	out := w.Out
	if out == nil {
		out = os.Stdout
	}

	for _, d := range deps {
		err := w.Wait(ctx, d.Checker)
		if err == nil {
			continue
		}
		if d.Optional {
			fmt.Fprintf(out, "warning: optional dependency %s is unreachable, continuing: %v\n", d.Checker.Name(), err)
			continue
		}
		return err
	}
	return nil
}
