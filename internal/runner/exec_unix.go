//go:build unix

package runner

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"

	"github.com/sergehoo/lynerp/internal/model"
)

// ReplaceProcess replaces the current process image with argv, passing the
// full environment through. On success it never returns: the server now
// owns this PID and receives the container runtime's signals directly.
//
// An error return always means the exec did not happen (unresolvable
// binary or a failed execve), which is fatal for the boot sequence.
func ReplaceProcess(argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return model.NewBootError(model.ExitUsage, "server command is empty")
	}

	path, err := exec.LookPath(argv[0])
	if err != nil {
		return model.WrapBootError(model.ExitFailure,
			fmt.Sprintf("server command %q not found", argv[0]), err)
	}

	if err := syscall.Exec(path, argv, os.Environ()); err != nil {
		return model.WrapBootError(model.ExitFailure,
			fmt.Sprintf("failed to exec %q", path), err)
	}
	// Unreachable: a successful Exec does not return.
	return nil
}
