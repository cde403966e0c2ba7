package transport

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// routingKeyPos is the argument index go-redis hashes to pick a cluster slot.
const routingKeyPos = 1

// Option configures a go-redis adapter.
type Option func(*adapterOptions)

type adapterOptions struct {
	readTimeout time.Duration
}

// WithReadTimeout bounds every non-blocking command by d through its
// context. d <= 0 leaves commands bounded only by the caller's context.
//
// The wrapped client must take socket deadlines from the context
// (ContextTimeoutEnabled, ReadTimeout -1), otherwise go-redis applies its
// own read deadline to blocking commands as well. See DeadlineOptions.
func WithReadTimeout(d time.Duration) Option {
	return func(o *adapterOptions) {
		o.readTimeout = d
	}
}

func buildOptions(opts []Option) adapterOptions {
	var o adapterOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// bound applies the read timeout to ctx. The parent's deadline wins when it
// is earlier.
func (o adapterOptions) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.readTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.readTimeout)
}

// unbounded detaches ctx from cancellation and from any deadline, so the
// socket read waits for as long as the server takes.
func unbounded(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// DeadlineOptions makes go-redis derive socket read deadlines from the
// command context only, so that DoBlocking can wait without a deadline.
// It returns the read timeout o carried, for use with WithReadTimeout;
// a negative timeout is returned as 0 (no bound).
func DeadlineOptions(o *redis.Options) time.Duration {
	d := normalizeReadTimeout(o.ReadTimeout)
	o.WriteTimeout = writeTimeout(o.WriteTimeout, d)
	o.ReadTimeout = -1
	o.ContextTimeoutEnabled = true
	return d
}

// ClusterDeadlineOptions is DeadlineOptions for cluster clients.
func ClusterDeadlineOptions(o *redis.ClusterOptions) time.Duration {
	d := normalizeReadTimeout(o.ReadTimeout)
	o.WriteTimeout = writeTimeout(o.WriteTimeout, d)
	o.ReadTimeout = -1
	o.ContextTimeoutEnabled = true
	// ClusterOptions turns -1 into 0 before building node clients, which
	// would then fall back to the 3s default.
	newClient := o.NewClient
	if newClient == nil {
		newClient = redis.NewClient
	}
	o.NewClient = func(opt *redis.Options) *redis.Client {
		opt.ReadTimeout = -1
		return newClient(opt)
	}
	return d
}

// writeTimeout keeps go-redis's default of WriteTimeout following the read
// timeout once ReadTimeout is rewritten.
func writeTimeout(w, read time.Duration) time.Duration {
	if w != 0 {
		return w
	}
	if read > 0 {
		return read
	}
	return -1
}

// normalizeReadTimeout follows go-redis: 0 means 3s, negative means none.
func normalizeReadTimeout(d time.Duration) time.Duration {
	switch {
	case d == 0:
		return 3 * time.Second
	case d < 0:
		return 0
	}
	return d
}

// ConnHandle adapts a sticky *redis.Conn to Handle.
//
// When the conn was obtained from (*redis.Client).Conn, Close hands the
// physical connection back to that client's pool.
type ConnHandle struct {
	conn  *redis.Conn
	owner *redis.Client
	opts  adapterOptions
}

// NewConnHandle wraps conn.
func NewConnHandle(conn *redis.Conn, opts ...Option) *ConnHandle {
	return &ConnHandle{conn: conn, opts: buildOptions(opts)}
}

// NewDedicatedHandle pins one connection of client and takes ownership of
// client: Close closes both.
func NewDedicatedHandle(client *redis.Client, opts ...Option) *ConnHandle {
	return &ConnHandle{conn: client.Conn(), owner: client, opts: buildOptions(opts)}
}

func (h *ConnHandle) Do(ctx context.Context, args ...any) (any, error) {
	ctx, cancel := h.opts.bound(ctx)
	defer cancel()
	return h.process(ctx, args)
}

func (h *ConnHandle) DoBlocking(ctx context.Context, args ...any) (any, error) {
	return h.process(unbounded(ctx), args)
}

func (h *ConnHandle) process(ctx context.Context, args []any) (any, error) {
	cmd := redis.NewCmd(ctx, args...)
	_ = h.conn.Process(ctx, cmd)
	return result(cmd)
}

func (h *ConnHandle) Watch(ctx context.Context, keys ...string) (string, error) {
	ctx, cancel := h.opts.bound(ctx)
	defer cancel()
	args := make([]any, 0, len(keys)+1)
	args = append(args, "WATCH")
	for _, k := range keys {
		args = append(args, k)
	}
	cmd := redis.NewStatusCmd(ctx, args...)
	_ = h.conn.Process(ctx, cmd)
	return cmd.Result()
}

func (h *ConnHandle) Unwatch(ctx context.Context) (string, error) {
	ctx, cancel := h.opts.bound(ctx)
	defer cancel()
	cmd := redis.NewStatusCmd(ctx, "UNWATCH")
	_ = h.conn.Process(ctx, cmd)
	return cmd.Result()
}

func (h *ConnHandle) Client() Pipeliner {
	return h.conn
}

func (h *ConnHandle) Close() error {
	err := h.conn.Close()
	if h.owner != nil {
		err = errors.Join(err, h.owner.Close())
	}
	return err
}

// RedisPool adapts a pooling *redis.Client to Pool.
//
// Acquire pins one pooled connection through a sticky Conn; the physical
// connection is checked out on first use and returned by Release.
type RedisPool struct {
	client *redis.Client
	opts   []Option
}

// NewRedisPool wraps client. The pool takes ownership: Close closes client.
// opts apply to every acquired handle.
func NewRedisPool(client *redis.Client, opts ...Option) *RedisPool {
	return &RedisPool{client: client, opts: opts}
}

func (p *RedisPool) Acquire(ctx context.Context) (Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewConnHandle(p.client.Conn(), p.opts...), nil
}

func (p *RedisPool) Release(h Handle) error {
	if h == nil {
		return nil
	}
	return h.Close()
}

func (p *RedisPool) Close() error {
	return p.client.Close()
}

// Stats reports the underlying go-redis pool statistics.
func (p *RedisPool) Stats() *redis.PoolStats {
	return p.client.PoolStats()
}

// RedisCluster adapts *redis.ClusterClient to Cluster.
type RedisCluster struct {
	client *redis.ClusterClient
	opts   adapterOptions
}

// NewRedisCluster wraps client. Close closes client.
func NewRedisCluster(client *redis.ClusterClient, opts ...Option) *RedisCluster {
	return &RedisCluster{client: client, opts: buildOptions(opts)}
}

func (c *RedisCluster) Do(ctx context.Context, args ...any) (any, error) {
	ctx, cancel := c.opts.bound(ctx)
	defer cancel()
	return c.process(ctx, args)
}

func (c *RedisCluster) DoBlocking(ctx context.Context, args ...any) (any, error) {
	return c.process(unbounded(ctx), args)
}

func (c *RedisCluster) process(ctx context.Context, args []any) (any, error) {
	cmd := redis.NewCmd(ctx, args...)
	if len(args) > routingKeyPos {
		cmd.SetFirstKeyPos(routingKeyPos)
	}
	_ = c.client.Process(ctx, cmd)
	return result(cmd)
}

func (c *RedisCluster) Close() error {
	return c.client.Close()
}

// result unwraps a generic command. A nil bulk reply is a value, not an
// error, at this layer.
func result(cmd *redis.Cmd) (any, error) {
	v, err := cmd.Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return v, err
}
