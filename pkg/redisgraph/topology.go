package redisgraph

import (
	"context"

	"github.com/orneryd/redisgraph/pkg/conn"
	"github.com/orneryd/redisgraph/pkg/transport"
)

// Topology is how a Client reaches the server: a pool of connections, one
// fixed connection, or a cluster client. Exactly one is active per Client.
//
// Build one with FromPool, FromHandle or FromCluster.
type Topology interface {
	// acquire returns the connection a single query or session runs on.
	// Closing it releases whatever was borrowed.
	acquire(ctx context.Context) (conn.Connection, error)

	// shutdown tears down every physical connection.
	shutdown() error

	mode() string
}

// FromPool borrows a fresh connection from p for every query and session.
// The Client owns p and closes it on Close.
func FromPool(p transport.Pool) Topology {
	return &pooled{pool: p}
}

// FromHandle runs every query on h. The Client owns h and closes it on Close.
func FromHandle(h transport.Handle) Topology {
	return &fixed{conn: conn.NewSingle(h), name: "single"}
}

// FromCluster routes every query through cl by graph id. The Client owns cl
// and closes it on Close.
func FromCluster(cl transport.Cluster) Topology {
	return &fixed{conn: conn.NewCluster(cl), name: "cluster"}
}

type pooled struct {
	pool transport.Pool
}

func (t *pooled) acquire(ctx context.Context) (conn.Connection, error) {
	h, err := t.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return conn.NewPooled(h, t.pool), nil
}

func (t *pooled) shutdown() error { return t.pool.Close() }

func (t *pooled) mode() string { return "pool" }

// fixed hands out the same shared connection every time; its Close is a
// no-op, so per-query release never tears it down.
type fixed struct {
	conn conn.Connection
	name string
}

func (t *fixed) acquire(context.Context) (conn.Connection, error) { return t.conn, nil }

func (t *fixed) shutdown() error { return t.conn.Disconnect() }

func (t *fixed) mode() string { return t.name }
