package conn

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/orneryd/redisgraph/pkg/transport"
)

// Connection is the contract every query is dispatched through.
//
// Close and Disconnect are deliberately distinct:
//   - Close releases whatever this instance borrowed (pool handle) or does
//     nothing. It is idempotent and is what per-query code calls.
//   - Disconnect tears down the physical connection(s). Only the client's
//     own shutdown calls it.
//
// A Connection is not safe for concurrent use.
type Connection interface {
	SendCommand(ctx context.Context, cmd Command, args ...string) (any, error)
	SendBlockingCommand(ctx context.Context, cmd Command, args ...string) (any, error)
	Watch(ctx context.Context, keys ...string) (string, error)
	Unwatch(ctx context.Context) (string, error)
	Client() (transport.Pipeliner, error)
	Close() error
	Disconnect() error
}

var (
	_ Connection = (*Single)(nil)
	_ Connection = (*Pooled)(nil)
	_ Connection = (*Cluster)(nil)
)

// Single wraps one fixed handle shared by every query of a client.
type Single struct {
	handle transport.Handle
}

// NewSingle wraps h.
func NewSingle(h transport.Handle) *Single {
	return &Single{handle: h}
}

func (c *Single) SendCommand(ctx context.Context, cmd Command, args ...string) (any, error) {
	return c.handle.Do(ctx, cmd.args(args)...)
}

func (c *Single) SendBlockingCommand(ctx context.Context, cmd Command, args ...string) (any, error) {
	return c.handle.DoBlocking(ctx, cmd.args(args)...)
}

func (c *Single) Watch(ctx context.Context, keys ...string) (string, error) {
	return c.handle.Watch(ctx, keys...)
}

func (c *Single) Unwatch(ctx context.Context) (string, error) {
	return c.handle.Unwatch(ctx)
}

func (c *Single) Client() (transport.Pipeliner, error) {
	return c.handle.Client(), nil
}

// Close is a no-op: the handle outlives every query.
func (c *Single) Close() error { return nil }

// Disconnect closes the handle.
func (c *Single) Disconnect() error {
	return c.handle.Close()
}

// Pooled wraps a handle borrowed from a pool for one query or session.
type Pooled struct {
	handle   transport.Handle
	pool     transport.Pool
	released atomic.Bool
}

// NewPooled wraps h, which must have been acquired from pool.
func NewPooled(h transport.Handle, pool transport.Pool) *Pooled {
	return &Pooled{handle: h, pool: pool}
}

func (c *Pooled) SendCommand(ctx context.Context, cmd Command, args ...string) (any, error) {
	if c.released.Load() {
		return nil, ErrConnectionClosed
	}
	return c.handle.Do(ctx, cmd.args(args)...)
}

func (c *Pooled) SendBlockingCommand(ctx context.Context, cmd Command, args ...string) (any, error) {
	if c.released.Load() {
		return nil, ErrConnectionClosed
	}
	return c.handle.DoBlocking(ctx, cmd.args(args)...)
}

func (c *Pooled) Watch(ctx context.Context, keys ...string) (string, error) {
	if c.released.Load() {
		return "", ErrConnectionClosed
	}
	return c.handle.Watch(ctx, keys...)
}

func (c *Pooled) Unwatch(ctx context.Context) (string, error) {
	if c.released.Load() {
		return "", ErrConnectionClosed
	}
	return c.handle.Unwatch(ctx)
}

func (c *Pooled) Client() (transport.Pipeliner, error) {
	if c.released.Load() {
		return nil, ErrConnectionClosed
	}
	return c.handle.Client(), nil
}

// Close returns the handle to the pool. Only the first call releases.
func (c *Pooled) Close() error {
	if !c.released.CompareAndSwap(false, true) {
		return nil
	}
	return c.pool.Release(c.handle)
}

// Disconnect behaves like Close. The physical connection belongs to the
// pool and is torn down only when the pool itself is closed.
func (c *Pooled) Disconnect() error {
	return c.Close()
}

// Released reports whether the handle has been returned to the pool.
func (c *Pooled) Released() bool {
	return c.released.Load()
}

// Cluster routes every command by its first argument.
type Cluster struct {
	cluster transport.Cluster
}

// NewCluster wraps cl.
func NewCluster(cl transport.Cluster) *Cluster {
	return &Cluster{cluster: cl}
}

func (c *Cluster) SendCommand(ctx context.Context, cmd Command, args ...string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoutingKey, cmd)
	}
	return c.cluster.Do(ctx, cmd.args(args)...)
}

func (c *Cluster) SendBlockingCommand(ctx context.Context, cmd Command, args ...string) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRoutingKey, cmd)
	}
	return c.cluster.DoBlocking(ctx, cmd.args(args)...)
}

func (c *Cluster) Watch(ctx context.Context, keys ...string) (string, error) {
	return "", fmt.Errorf("%w: cluster does not support watch", ErrUnsupportedOperation)
}

func (c *Cluster) Unwatch(ctx context.Context) (string, error) {
	return "", fmt.Errorf("%w: cluster does not support unwatch", ErrUnsupportedOperation)
}

func (c *Cluster) Client() (transport.Pipeliner, error) {
	return nil, fmt.Errorf("%w: cluster does not support pipelining", ErrUnsupportedOperation)
}

// Close is a no-op: the cluster client is shared by every query.
func (c *Cluster) Close() error { return nil }

// Disconnect closes the entire cluster client.
func (c *Cluster) Disconnect() error {
	return c.cluster.Close()
}
