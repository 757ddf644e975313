// Package probe implements readiness checks for the network services the
// application depends on, and the retry loop that blocks startup until
// every declared dependency accepts connections.
//
// A Checker verifies one dependency with a single attempt; the Waiter polls
// a Checker with a fixed attempt budget and spacing (120 attempts, 1 second
// apart by default — the ~120-second ceiling of the shell entrypoints this
// tool replaces). Checks run strictly sequentially: the boot sequence is
// single-threaded by design, so each dependency blocks the whole process.
//
// Checker kinds, selected by the scheme of the dependency target:
//
//	tcp://host:port         raw TCP dial (the canonical check)
//	postgres://…            PostgreSQL connect + ping via pgx
//	redis://host:port       Redis PING via go-redis
//	http(s)://…             GET returning a non-error status
//	docker://name           container running and healthy, via the Docker API
package probe
