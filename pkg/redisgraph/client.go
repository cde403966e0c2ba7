// Package redisgraph is a client for RedisGraph, the graph-query module of
// Redis.
//
// A Client owns one connection Topology (a pool, one fixed connection, or a
// cluster client) and one schema cache registry shared by every query and
// session it hands out. Each query borrows a connection for its own duration
// and releases it on every exit path, errors included.
//
// Example:
//
//	client := redisgraph.NewWithAddr("localhost", 6379)
//	defer client.Close()
//
//	rs, err := client.Query(ctx, "social", "CREATE (:Person {name: 'roi'})")
//	if err != nil {
//		return err
//	}
//	fmt.Println(rs.Statistics.NodesCreated())
//
//	rs, err = client.QueryWithParams(ctx, "social",
//		"MATCH (p:Person {name: $name}) RETURN p",
//		map[string]any{"name": "roi"})
//
// Schema caches:
//
// Compact replies carry label, relationship type and property key ids. The
// client keeps one id-to-name cache per graph, fills it lazily from the
// server when a reply carries an id it has not seen, and evicts it when the
// graph is deleted through DeleteGraph.
package redisgraph

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/orneryd/redisgraph/pkg/graphcache"
	"github.com/orneryd/redisgraph/pkg/metrics"
	"github.com/orneryd/redisgraph/pkg/resultset"
)

const tracerName = "github.com/orneryd/redisgraph"

// Client dispatches graph commands over its Topology.
//
// Thread-safe: every query acquires its own connection.
type Client struct {
	topology Topology
	registry *graphcache.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	closed   atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithTracer sets the tracer. Defaults to the global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(c *Client) {
		if tracer != nil {
			c.tracer = tracer
		}
	}
}

// New returns a client over t. The client owns t.
func New(t Topology, opts ...Option) *Client {
	c := &Client{
		topology: t,
		registry: graphcache.NewRegistry(),
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "redisgraph", "mode", t.mode())
	return c
}

// Session borrows a connection and returns a session bound to it and to the
// client's schema caches. The caller must Close the session.
func (c *Client) Session(ctx context.Context) (*Session, error) {
	if c.closed.Load() {
		return nil, ErrClientClosed
	}
	cn, err := c.topology.acquire(ctx)
	if err != nil {
		return nil, err
	}
	metrics.ConnectionsInUse.Inc()
	return newSession(cn, c.registry, c.logger, c.tracer), nil
}

// withSession runs fn on a session that is closed when fn returns.
func (c *Client) withSession(ctx context.Context, fn func(*Session) error) error {
	s, err := c.Session(ctx)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(s)
}

// Execute dispatches q on a freshly acquired connection.
func (c *Client) Execute(ctx context.Context, q Query) (*resultset.ResultSet, error) {
	var rs *resultset.ResultSet
	err := c.withSession(ctx, func(s *Session) error {
		var err error
		rs, err = s.Execute(ctx, q)
		return err
	})
	return rs, err
}

// Query runs a read-write query against graphID.
func (c *Client) Query(ctx context.Context, graphID, query string) (*resultset.ResultSet, error) {
	return c.Execute(ctx, Query{GraphID: graphID, Text: query})
}

// ReadOnlyQuery runs a query through GRAPH.RO_QUERY, which replicas accept.
func (c *Client) ReadOnlyQuery(ctx context.Context, graphID, query string) (*resultset.ResultSet, error) {
	return c.Execute(ctx, Query{GraphID: graphID, Text: query, ReadOnly: true})
}

// QueryWithTimeout runs a read-write query the server aborts after timeout.
func (c *Client) QueryWithTimeout(ctx context.Context, graphID, query string, timeout time.Duration) (*resultset.ResultSet, error) {
	return c.Execute(ctx, Query{GraphID: graphID, Text: query, Timeout: timeout})
}

// ReadOnlyQueryWithTimeout runs a read-only query the server aborts after timeout.
func (c *Client) ReadOnlyQueryWithTimeout(ctx context.Context, graphID, query string, timeout time.Duration) (*resultset.ResultSet, error) {
	return c.Execute(ctx, Query{GraphID: graphID, Text: query, Timeout: timeout, ReadOnly: true})
}

// QueryWithParams runs query with a CYPHER parameter header built from params.
func (c *Client) QueryWithParams(ctx context.Context, graphID, query string, params map[string]any) (*resultset.ResultSet, error) {
	text, err := PrepareQuery(query, params)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, Query{GraphID: graphID, Text: text})
}

// ReadOnlyQueryWithParams is QueryWithParams through GRAPH.RO_QUERY.
func (c *Client) ReadOnlyQueryWithParams(ctx context.Context, graphID, query string, params map[string]any) (*resultset.ResultSet, error) {
	text, err := PrepareQuery(query, params)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, Query{GraphID: graphID, Text: text, ReadOnly: true})
}

// CallProcedure runs CALL procedure(args...) and yields the named outputs.
// String args are quoted; an empty yield returns every output.
func (c *Client) CallProcedure(ctx context.Context, graphID, procedure string, args []any, yield []string) (*resultset.ResultSet, error) {
	text, err := procedureQuery(procedure, args, yield)
	if err != nil {
		return nil, err
	}
	return c.Execute(ctx, Query{GraphID: graphID, Text: text})
}

// DeleteGraph deletes graphID and evicts its schema cache once the server has
// confirmed. On failure the cache is left untouched and the error is
// returned unchanged.
func (c *Client) DeleteGraph(ctx context.Context, graphID string) (string, error) {
	var status string
	err := c.withSession(ctx, func(s *Session) error {
		var err error
		status, err = s.DeleteGraph(ctx, graphID)
		return err
	})
	return status, err
}

// Explain returns the execution plan of query without running it.
func (c *Client) Explain(ctx context.Context, graphID, query string) ([]string, error) {
	var plan []string
	err := c.withSession(ctx, func(s *Session) error {
		var err error
		plan, err = s.Explain(ctx, graphID, query)
		return err
	})
	return plan, err
}

// ListGraphs returns the graph keys held by the server.
func (c *Client) ListGraphs(ctx context.Context) ([]string, error) {
	var graphs []string
	err := c.withSession(ctx, func(s *Session) error {
		var err error
		graphs, err = s.ListGraphs(ctx)
		return err
	})
	return graphs, err
}

// SchemaCache returns the registry shared by every session of the client.
func (c *Client) SchemaCache() *graphcache.Registry { return c.registry }

// Close shuts the topology down: a pool is closed, a fixed connection or a
// cluster client is disconnected. Only the first call has any effect.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := c.topology.shutdown(); err != nil {
		c.logger.Warn("client close failed", "error", err)
		return err
	}
	c.logger.Info("client closed", "cached_graphs", c.registry.Len())
	return nil
}
