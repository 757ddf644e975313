// bind.go implements the pre-exec bind preflight: before replacing the boot
// process with the server, verify the server's listen address is actually
// free. Failing here produces one clear error line instead of a gunicorn
// stack trace about EADDRINUSE after migrations already ran.
package probe

import (
	"fmt"
	"net"

	"github.com/sergehoo/lynerp/internal/model"
)

// CheckBindAddress verifies that addr ("host:port") can be bound. It opens
// a listener and closes it immediately — the server itself performs the
// real bind moments later.
//
// There is an unavoidable window between this check and the server's own
// bind; the check exists to catch the common deterministic case of another
// process already owning the port, not to reserve it.
func CheckBindAddress(addr string) error {
	if addr == "" {
		return nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return model.WrapBootError(model.ExitFailure,
			fmt.Sprintf("server bind address %s is not available", addr), err)
	}
	return ln.Close()
}
