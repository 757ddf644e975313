package probe

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sergehoo/lynerp/internal/model"
)

// redisCheckTimeout bounds one PING attempt, dial included.
const redisCheckTimeout = 3 * time.Second

// RedisChecker verifies readiness with a Redis PING. PING succeeds on an
// unauthenticated default deployment and exercises the full command
// round-trip, which a bare TCP accept does not.
type RedisChecker struct {
	name string
	opts *redis.Options
}

// newRedisChecker builds a RedisChecker from a redis:// or rediss:// URL.
func newRedisChecker(name, target string) (*RedisChecker, error) {
	opts, err := redis.ParseURL(target)
	if err != nil {
		return nil, model.WrapBootError(model.ExitUsage,
			"invalid redis target", err)
	}
	opts.DialTimeout = redisCheckTimeout
	opts.ReadTimeout = redisCheckTimeout
	// A probe must not linger retrying inside the client — the Waiter owns
	// the retry budget.
	opts.MaxRetries = -1

	return &RedisChecker{
		name: defaultName(name, "Redis"),
		opts: opts,
	}, nil
}

// Name returns the display name.
func (c *RedisChecker) Name() string { return c.name }

// Kind returns KindRedis.
func (c *RedisChecker) Kind() model.DependencyKind { return model.KindRedis }

// Target returns the host:port address (passwords live in Options, not here).
func (c *RedisChecker) Target() string { return c.opts.Addr }

// Check opens a client, pings, and closes. One client per attempt keeps the
// checker stateless across server restarts.
func (c *RedisChecker) Check(ctx context.Context) error {
	checkCtx, cancel := context.WithTimeout(ctx, redisCheckTimeout)
	defer cancel()

	rdb := redis.NewClient(c.opts)
	defer func() { _ = rdb.Close() }()

	return rdb.Ping(checkCtx).Err()
}
