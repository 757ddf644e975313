package probe

import (
	"context"
	"net"
	"time"

	"github.com/sergehoo/lynerp/internal/model"
)

// tcpDialTimeout bounds a single connection attempt. Shorter than the retry
// interval would waste budget on slow networks; 2 seconds matches the
// connect timeout the shell-era netcat loop used.
const tcpDialTimeout = 2 * time.Second

// TCPChecker verifies readiness with a raw TCP connection attempt. This is
// the canonical dependency check: it proves the service is listening, and
// nothing more.
type TCPChecker struct {
	name string
	addr string
}

// newTCPChecker validates the address and builds a TCPChecker.
func newTCPChecker(name, addr string) (*TCPChecker, error) {
	joined, err := splitHostPort(addr)
	if err != nil {
		return nil, model.WrapBootError(model.ExitUsage, "invalid tcp target", err)
	}
	return &TCPChecker{
		name: defaultName(name, joined),
		addr: joined,
	}, nil
}

// Name returns the display name.
func (c *TCPChecker) Name() string { return c.name }

// Kind returns KindTCP.
func (c *TCPChecker) Kind() model.DependencyKind { return model.KindTCP }

// Target returns the host:port address.
func (c *TCPChecker) Target() string { return c.addr }

// Check attempts one TCP connection. The connection is closed immediately:
// only the accept matters, no payload is exchanged.
func (c *TCPChecker) Check(ctx context.Context) error {
	d := net.Dialer{Timeout: tcpDialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return err
	}
	return conn.Close()
}
