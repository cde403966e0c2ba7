package redisgraph

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/orneryd/redisgraph/pkg/config"
	"github.com/orneryd/redisgraph/pkg/transport"
)

// Compact replies are decoded from RESP2 shapes.
const protocolVersion = 2

// NewDefault returns a pooled client for localhost:6379.
func NewDefault(opts ...Option) *Client {
	return NewWithAddr("localhost", 6379, opts...)
}

// NewWithAddr returns a pooled client for host:port with go-redis pool defaults.
func NewWithAddr(host string, port int, opts ...Option) *Client {
	o := &redis.Options{
		Addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		Protocol: protocolVersion,
	}
	readTimeout := transport.DeadlineOptions(o)
	pool := transport.NewRedisPool(redis.NewClient(o), transport.WithReadTimeout(readTimeout))
	return New(FromPool(pool), opts...)
}

// Dial builds a client from cfg. Mode picks the topology:
//   - pool: a go-redis pool sized by cfg.Pool, one connection per query
//   - single: one dedicated connection shared by every query
//   - cluster: a cluster client seeded with cfg.Cluster.Addrs
//
// Read deadlines come from the command context: queries are bounded by
// cfg.Timeouts.Read and the caller's context, blocking commands by nothing.
// Connections are established lazily on first use.
func Dial(cfg *config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	switch cfg.Mode {
	case config.ModeCluster:
		co := &redis.ClusterOptions{
			Addrs:        cfg.Cluster.Addrs,
			Username:     cfg.Server.Username,
			Password:     cfg.Server.Password,
			Protocol:     protocolVersion,
			PoolSize:     cfg.Pool.Size,
			MinIdleConns: cfg.Pool.MinIdle,
			PoolTimeout:  cfg.Pool.Timeout,
			DialTimeout:  cfg.Timeouts.Dial,
			ReadTimeout:  socketTimeout(cfg.Timeouts.Read),
			WriteTimeout: socketTimeout(cfg.Timeouts.Write),
		}
		readTimeout := transport.ClusterDeadlineOptions(co)
		cluster := transport.NewRedisCluster(redis.NewClusterClient(co), transport.WithReadTimeout(readTimeout))
		return New(FromCluster(cluster), opts...), nil

	case config.ModeSingle:
		o := redisOptions(cfg)
		o.PoolSize = 1
		o.MinIdleConns = 0
		readTimeout := transport.DeadlineOptions(o)
		h := transport.NewDedicatedHandle(redis.NewClient(o), transport.WithReadTimeout(readTimeout))
		return New(FromHandle(h), opts...), nil

	default:
		o := redisOptions(cfg)
		readTimeout := transport.DeadlineOptions(o)
		pool := transport.NewRedisPool(redis.NewClient(o), transport.WithReadTimeout(readTimeout))
		return New(FromPool(pool), opts...), nil
	}
}

func redisOptions(cfg *config.Config) *redis.Options {
	return &redis.Options{
		Addr:         cfg.Server.Addr(),
		Username:     cfg.Server.Username,
		Password:     cfg.Server.Password,
		DB:           cfg.Server.DB,
		Protocol:     protocolVersion,
		PoolSize:     cfg.Pool.Size,
		MinIdleConns: cfg.Pool.MinIdle,
		PoolTimeout:  cfg.Pool.Timeout,
		DialTimeout:  cfg.Timeouts.Dial,
		ReadTimeout:  socketTimeout(cfg.Timeouts.Read),
		WriteTimeout: socketTimeout(cfg.Timeouts.Write),
	}
}

// socketTimeout maps a negative configured timeout to go-redis's "no
// deadline" sentinel (-1).
func socketTimeout(d time.Duration) time.Duration {
	if d < 0 {
		return -1
	}
	return d
}
