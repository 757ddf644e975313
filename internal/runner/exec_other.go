//go:build !unix

package runner

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/sergehoo/lynerp/internal/model"
)

// ReplaceProcess approximates exec semantics on platforms without execve:
// the server runs as a child, interrupt/termination signals are forwarded
// to it, and the boot process exits with the child's exit code. This path
// exists for development convenience only — the deployed entrypoint is a
// Linux container and takes the true exec path.
func ReplaceProcess(argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return model.NewBootError(model.ExitUsage, "server command is empty")
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Stdin = os.Stdin

	if err := cmd.Start(); err != nil {
		return model.WrapBootError(model.ExitFailure,
			fmt.Sprintf("failed to start server command %q", argv[0]), err)
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	for {
		select {
		case sig := <-sigs:
			_ = cmd.Process.Signal(sig)
		case err := <-done:
			if err == nil {
				os.Exit(0)
			}
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				os.Exit(exitErr.ExitCode())
			}
			return model.WrapBootError(model.ExitFailure, "server process failed", err)
		}
	}
}
