package transport

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/redisgraph/pkg/transport/resptest"
)

func newTestClient(t *testing.T, poolSize int) *redis.Client {
	t.Helper()
	srv := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{
		Addr:     srv.Addr(),
		PoolSize: poolSize,
		Protocol: 2,
	})
}

func TestRedisPool_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	pool := NewRedisPool(newTestClient(t, 1))
	defer pool.Close()

	for i := 0; i < 3; i++ {
		h, err := pool.Acquire(ctx)
		require.NoError(t, err)

		reply, err := h.Do(ctx, "SET", "k", "v")
		require.NoError(t, err)
		assert.Equal(t, "OK", reply)

		require.NoError(t, pool.Release(h))
	}

	stats := pool.Stats()
	assert.LessOrEqual(t, stats.TotalConns, uint32(1))
}

func TestConnHandle_NilReplyIsNotAnError(t *testing.T) {
	ctx := context.Background()
	pool := NewRedisPool(newTestClient(t, 2))
	defer pool.Close()

	h, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer pool.Release(h)

	reply, err := h.Do(ctx, "GET", "missing")
	require.NoError(t, err)
	assert.Nil(t, reply)
}

func TestConnHandle_WatchUnwatch(t *testing.T) {
	ctx := context.Background()
	pool := NewRedisPool(newTestClient(t, 2))
	defer pool.Close()

	h, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer pool.Release(h)

	status, err := h.Watch(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, "OK", status)

	status, err = h.Unwatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OK", status)
}

func TestConnHandle_ServerErrorPropagates(t *testing.T) {
	ctx := context.Background()
	pool := NewRedisPool(newTestClient(t, 2))
	defer pool.Close()

	h, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer pool.Release(h)

	_, err = h.Do(ctx, "GRAPH.QUERY", "g", "RETURN 1")
	require.Error(t, err)

	// The connection stays usable after a server error reply.
	reply, err := h.Do(ctx, "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", reply)
}

func TestConnHandle_Pipeline(t *testing.T) {
	ctx := context.Background()
	pool := NewRedisPool(newTestClient(t, 2))
	defer pool.Close()

	h, err := pool.Acquire(ctx)
	require.NoError(t, err)
	defer pool.Release(h)

	pipe := h.Client().Pipeline()
	set := pipe.Set(ctx, "p", "1", 0)
	get := pipe.Get(ctx, "p")
	_, err = pipe.Exec(ctx)
	require.NoError(t, err)
	assert.Equal(t, "OK", set.Val())
	assert.Equal(t, "1", get.Val())
}

func TestRedisPool_AcquireHonoursCancelledContext(t *testing.T) {
	pool := NewRedisPool(newTestClient(t, 1))
	defer pool.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDedicatedHandle_CloseClosesClient(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, 1)
	h := NewDedicatedHandle(client)

	reply, err := h.Do(ctx, "PING")
	require.NoError(t, err)
	assert.Equal(t, "PONG", reply)

	require.NoError(t, h.Close())
	assert.ErrorIs(t, client.Ping(ctx).Err(), redis.ErrClosed)
}

func newSlowHandle(t *testing.T, delay, readTimeout time.Duration) *ConnHandle {
	t.Helper()
	o := &redis.Options{
		Addr:             resptest.StartDelayed(t, delay),
		Protocol:         2,
		PoolSize:         1,
		MaxRetries:       -1,
		DisableIndentity: true,
		ReadTimeout:      readTimeout,
	}
	h := NewDedicatedHandle(redis.NewClient(o), WithReadTimeout(DeadlineOptions(o)))
	t.Cleanup(func() { h.Close() })
	return h
}

func TestConnHandle_DoBlockingOutlivesReadTimeout(t *testing.T) {
	h := newSlowHandle(t, 300*time.Millisecond, 100*time.Millisecond)

	// Neither the read timeout nor the caller's deadline cuts the wait.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	reply, err := h.DoBlocking(ctx, "GRAPH.QUERY", "g", "RETURN 1")
	require.NoError(t, err)
	assert.Equal(t, "OK", reply)
	assert.GreaterOrEqual(t, time.Since(start), 300*time.Millisecond)
}

func TestConnHandle_DoHonoursReadTimeout(t *testing.T) {
	h := newSlowHandle(t, 300*time.Millisecond, 100*time.Millisecond)

	start := time.Now()
	_, err := h.Do(context.Background(), "GRAPH.QUERY", "g", "RETURN 1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestConnHandle_DoHonoursCallerDeadline(t *testing.T) {
	h := newSlowHandle(t, 300*time.Millisecond, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := h.Do(ctx, "GRAPH.QUERY", "g", "RETURN 1")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 300*time.Millisecond)
}

func TestDeadlineOptions(t *testing.T) {
	tests := []struct {
		name        string
		read, write time.Duration
		wantRead    time.Duration
		wantWrite   time.Duration
	}{
		{"go-redis default", 0, 0, 3 * time.Second, 3 * time.Second},
		{"explicit", 100 * time.Millisecond, time.Second, 100 * time.Millisecond, time.Second},
		{"write follows read", 200 * time.Millisecond, 0, 200 * time.Millisecond, 200 * time.Millisecond},
		{"no read deadline", -1, 0, 0, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &redis.Options{ReadTimeout: tt.read, WriteTimeout: tt.write}
			assert.Equal(t, tt.wantRead, DeadlineOptions(o))
			assert.Equal(t, time.Duration(-1), o.ReadTimeout)
			assert.Equal(t, tt.wantWrite, o.WriteTimeout)
			assert.True(t, o.ContextTimeoutEnabled)
		})
	}
}

func TestClusterDeadlineOptions_NodeClientsHaveNoReadDeadline(t *testing.T) {
	co := &redis.ClusterOptions{Addrs: []string{"127.0.0.1:1"}, ReadTimeout: 250 * time.Millisecond}
	assert.Equal(t, 250*time.Millisecond, ClusterDeadlineOptions(co))
	assert.True(t, co.ContextTimeoutEnabled)

	// ClusterOptions hands node clients ReadTimeout 0, which alone would
	// become go-redis's 3s default.
	node := co.NewClient(&redis.Options{Addr: "127.0.0.1:1", ReadTimeout: 0})
	defer node.Close()
	assert.Equal(t, time.Duration(0), node.Options().ReadTimeout)
}
