package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sergehoo/lynerp/internal/model"
)

// StepRunner executes initialization steps with a shared output
// configuration.
type StepRunner struct {
	// Out and Err receive step output. Default to the process streams.
	Out io.Writer
	Err io.Writer
}

// NewStepRunner creates a StepRunner writing to the process streams.
func NewStepRunner() *StepRunner {
	return &StepRunner{Out: os.Stdout, Err: os.Stderr}
}

// Run executes one step. For a best-effort step a failure is logged and
// swallowed — the boot sequence continues; for a required step the error
// is returned and the caller aborts.
func (r *StepRunner) Run(ctx context.Context, step model.Step) error {
	if err := step.Validate(); err != nil {
		return model.WrapBootError(model.ExitUsage, "invalid step", err)
	}

	fmt.Fprintf(r.out(), "Running %s: %v\n", step.Name, step.Command)

	cmd := exec.CommandContext(ctx, step.Command[0], step.Command[1:]...)
	cmd.Stdout = r.out()
	cmd.Stderr = r.errOut()
	cmd.Stdin = os.Stdin

	err := cmd.Run()
	if err == nil {
		fmt.Fprintf(r.out(), "%s done\n", step.Name)
		return nil
	}

	if step.BestEffort {
		fmt.Fprintf(r.out(), "warning: %s failed, continuing: %v\n", step.Name, err)
		return nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return model.WrapBootError(model.ExitCode(exitErr.ExitCode()),
			fmt.Sprintf("step %s failed", step.Name), err)
	}
	return model.WrapBootError(model.ExitFailure,
		fmt.Sprintf("step %s failed to run", step.Name), err)
}

// RunAll executes steps in declaration order, honoring each step's
// failure policy.
func (r *StepRunner) RunAll(ctx context.Context, steps []model.Step) error {
	for _, step := range steps {
		if err := r.Run(ctx, step); err != nil {
			return err
		}
	}
	return nil
}

func (r *StepRunner) out() io.Writer {
	if r.Out != nil {
		return r.Out
	}
	return os.Stdout
}

func (r *StepRunner) errOut() io.Writer {
	if r.Err != nil {
		return r.Err
	}
	return os.Stderr
}
