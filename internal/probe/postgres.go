package probe

import (
	"context"
	"net/url"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/sergehoo/lynerp/internal/model"
)

// postgresCheckTimeout bounds one connect-and-ping attempt. The DSN built
// by the config package additionally carries connect_timeout=5, so the two
// limits agree.
const postgresCheckTimeout = 5 * time.Second

// PostgresChecker verifies readiness by completing a PostgreSQL startup
// handshake and ping. This is stronger than a TCP accept: postgres answers
// on its port well before it accepts authenticated sessions during crash
// recovery, and a TCP-level wait would let the application boot against a
// database that rejects every query.
type PostgresChecker struct {
	name string
	dsn  string

	// display is the credential-free form of the DSN for log output.
	display string
}

// newPostgresChecker builds a PostgresChecker from a parsed postgres:// URL.
// The full DSN (including credentials) goes to pgx; only host:port is ever
// displayed.
func newPostgresChecker(name, dsn string, u *url.URL) (*PostgresChecker, error) {
	if u.Host == "" {
		return nil, model.NewBootError(model.ExitUsage,
			"invalid postgres target: missing host")
	}
	return &PostgresChecker{
		name:    defaultName(name, "Postgres"),
		dsn:     dsn,
		display: u.Host,
	}, nil
}

// Name returns the display name.
func (c *PostgresChecker) Name() string { return c.name }

// Kind returns KindPostgres.
func (c *PostgresChecker) Kind() model.DependencyKind { return model.KindPostgres }

// Target returns host:port with credentials redacted.
func (c *PostgresChecker) Target() string { return c.display }

// Check opens a connection, pings, and closes. A fresh connection per
// attempt is deliberate: the point is to observe the server's current
// state, not to reuse a socket that predates a restart.
func (c *PostgresChecker) Check(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, postgresCheckTimeout)
	defer cancel()

	conn, err := pgx.Connect(checkCtx, c.dsn)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close(checkCtx) }()

	return conn.Ping(checkCtx)
}
