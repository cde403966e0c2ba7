// Package transport defines the physical-connection contracts consumed by the
// RedisGraph client and provides go-redis backed implementations of them.
//
// Three topologies are modelled:
//   - Handle: one physical connection to one server process
//   - Pool: a thread-safe provider of Handles
//   - Cluster: a key-routed client spanning many server processes
//
// The connection layer (package conn) maps its uniform Connection contract
// onto these; nothing above this package talks to go-redis directly except
// for dialing.
package transport

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Pipeliner exposes the raw pipelining surface of a single physical
// connection. *redis.Conn satisfies it.
type Pipeliner interface {
	Pipeline() redis.Pipeliner
	TxPipeline() redis.Pipeliner
}

// Handle is a single physical connection.
//
// A Handle is not safe for concurrent use; callers own it exclusively for
// the duration of a query or session.
type Handle interface {
	// Do sends one command and waits for its reply, bounded by ctx and by
	// the adapter's read timeout.
	Do(ctx context.Context, args ...any) (any, error)

	// DoBlocking sends a command and waits for its reply without a
	// deadline. Neither ctx cancellation nor ctx deadlines interrupt the
	// wait, and no read timeout applies.
	DoBlocking(ctx context.Context, args ...any) (any, error)

	// Watch marks keys for an optimistic transaction.
	Watch(ctx context.Context, keys ...string) (string, error)

	// Unwatch clears all watched keys.
	Unwatch(ctx context.Context) (string, error)

	// Client returns the raw connection for pipelining.
	Client() Pipeliner

	// Close terminates the connection, or hands it back to the pool it was
	// borrowed from when the handle is pool-backed.
	Close() error
}

// Pool supplies and reclaims Handles. Implementations must be safe for
// concurrent use.
type Pool interface {
	// Acquire borrows a handle. The caller must Release it.
	Acquire(ctx context.Context) (Handle, error)

	// Release returns a borrowed handle. It never tears down the pool.
	Release(h Handle) error

	// Close shuts the pool and every connection it owns.
	Close() error
}

// Cluster is a key-routed client over many server processes.
//
// args[0] is the command name and args[1] the routing key, which for graph
// commands is always the graph identifier.
type Cluster interface {
	Do(ctx context.Context, args ...any) (any, error)
	DoBlocking(ctx context.Context, args ...any) (any, error)
	Close() error
}
