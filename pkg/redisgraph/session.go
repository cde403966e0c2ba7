package redisgraph

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orneryd/redisgraph/pkg/conn"
	"github.com/orneryd/redisgraph/pkg/graphcache"
	"github.com/orneryd/redisgraph/pkg/metrics"
	"github.com/orneryd/redisgraph/pkg/resultset"
	"github.com/orneryd/redisgraph/pkg/transport"
)

// Session runs commands on one connection, in call order, sharing the
// schema caches of the Client that created it.
//
// Use a session for WATCH/MULTI flows and pipelining, or to keep a sequence
// of queries on the same connection. The caller must Close it; Close
// releases the connection exactly once.
//
// A Session is not safe for concurrent use.
type Session struct {
	id       string
	conn     conn.Connection
	registry *graphcache.Registry
	logger   *slog.Logger
	tracer   trace.Tracer
	closed   atomic.Bool
}

var _ graphcache.Fetcher = (*Session)(nil)

func newSession(c conn.Connection, registry *graphcache.Registry, logger *slog.Logger, tracer trace.Tracer) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     c,
		registry: registry,
		logger:   logger.With("session", id),
		tracer:   tracer,
	}
}

// ID identifies the session in logs and spans.
func (s *Session) ID() string { return s.id }

// Execute dispatches q and decodes the compact reply, resolving schema ids
// through the graph's shared cache entry.
func (s *Session) Execute(ctx context.Context, q Query) (*resultset.ResultSet, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	entry := s.registry.LookupOrCreate(q.GraphID)

	var rs *resultset.ResultSet
	err := s.instrument(ctx, q.command(), q.GraphID, func(ctx context.Context) error {
		reply, err := s.conn.SendCommand(ctx, q.command(), q.args()...)
		if err != nil {
			return err
		}
		rs, err = resultset.Decode(ctx, reply, entry.Bind(s))
		return err
	})
	if err != nil {
		return nil, err
	}
	return rs, nil
}

// Query runs a read-write query.
func (s *Session) Query(ctx context.Context, graphID, query string) (*resultset.ResultSet, error) {
	return s.Execute(ctx, Query{GraphID: graphID, Text: query})
}

// ReadOnlyQuery runs a query through GRAPH.RO_QUERY.
func (s *Session) ReadOnlyQuery(ctx context.Context, graphID, query string) (*resultset.ResultSet, error) {
	return s.Execute(ctx, Query{GraphID: graphID, Text: query, ReadOnly: true})
}

// QueryWithTimeout runs a read-write query with a server-side timeout.
func (s *Session) QueryWithTimeout(ctx context.Context, graphID, query string, timeout time.Duration) (*resultset.ResultSet, error) {
	return s.Execute(ctx, Query{GraphID: graphID, Text: query, Timeout: timeout})
}

// ReadOnlyQueryWithTimeout runs a read-only query with a server-side timeout.
func (s *Session) ReadOnlyQueryWithTimeout(ctx context.Context, graphID, query string, timeout time.Duration) (*resultset.ResultSet, error) {
	return s.Execute(ctx, Query{GraphID: graphID, Text: query, Timeout: timeout, ReadOnly: true})
}

// QueryWithParams runs query with a CYPHER parameter header built from params.
func (s *Session) QueryWithParams(ctx context.Context, graphID, query string, params map[string]any) (*resultset.ResultSet, error) {
	text, err := PrepareQuery(query, params)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, Query{GraphID: graphID, Text: text})
}

// CallProcedure runs CALL procedure(args...) YIELD yield...
func (s *Session) CallProcedure(ctx context.Context, graphID, procedure string, args []any, yield []string) (*resultset.ResultSet, error) {
	text, err := procedureQuery(procedure, args, yield)
	if err != nil {
		return nil, err
	}
	return s.Execute(ctx, Query{GraphID: graphID, Text: text})
}

// DeleteGraph deletes graphID and returns the server's status line. The
// graph's schema cache is evicted only once the server has confirmed the
// delete; a failed delete leaves it untouched.
func (s *Session) DeleteGraph(ctx context.Context, graphID string) (string, error) {
	if s.closed.Load() {
		return "", ErrSessionClosed
	}
	var status string
	err := s.instrument(ctx, conn.GraphDelete, graphID, func(ctx context.Context) error {
		reply, err := s.conn.SendCommand(ctx, conn.GraphDelete, graphID)
		if err != nil {
			return err
		}
		if s.registry.Remove(graphID) {
			s.logger.Info("evicted schema cache", "graph", graphID)
		}
		status, err = replyString(conn.GraphDelete, reply)
		return err
	})
	return status, err
}

// Explain returns the execution plan of query, one operation per line.
func (s *Session) Explain(ctx context.Context, graphID, query string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	var plan []string
	err := s.instrument(ctx, conn.GraphExplain, graphID, func(ctx context.Context) error {
		reply, err := s.conn.SendCommand(ctx, conn.GraphExplain, graphID, query)
		if err != nil {
			return err
		}
		plan, err = replyStrings(conn.GraphExplain, reply)
		return err
	})
	return plan, err
}

// ListGraphs returns the graph keys held by the server. The command carries
// no graph id, so it fails with conn.ErrNoRoutingKey on a cluster.
func (s *Session) ListGraphs(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	var graphs []string
	err := s.instrument(ctx, conn.GraphList, "", func(ctx context.Context) error {
		reply, err := s.conn.SendCommand(ctx, conn.GraphList)
		if err != nil {
			return err
		}
		graphs, err = replyStrings(conn.GraphList, reply)
		return err
	})
	return graphs, err
}

// FetchSchema runs CALL procedure() read-only against graphID and returns
// the first column of every row. Schema cache entries refresh through it.
func (s *Session) FetchSchema(ctx context.Context, graphID, procedure string) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	text, err := procedureQuery(procedure, nil, nil)
	if err != nil {
		return nil, err
	}
	q := Query{GraphID: graphID, Text: text, ReadOnly: true}

	var names []string
	err = s.instrument(ctx, q.command(), graphID, func(ctx context.Context) error {
		reply, err := s.conn.SendCommand(ctx, q.command(), q.args()...)
		if err != nil {
			return err
		}
		rs, err := resultset.Decode(ctx, reply, nil)
		if err != nil {
			return err
		}
		names = make([]string, 0, rs.Size())
		for _, rec := range rs.Records {
			name, ok := rec.GetByIndex(0).(string)
			if !ok {
				return resultset.NewProtocolError(nil, "%s: expected string name, got %T", procedure, rec.GetByIndex(0))
			}
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Watch marks keys for an optimistic transaction on this session's connection.
func (s *Session) Watch(ctx context.Context, keys ...string) (string, error) {
	if s.closed.Load() {
		return "", ErrSessionClosed
	}
	return s.conn.Watch(ctx, keys...)
}

// Unwatch clears all watched keys.
func (s *Session) Unwatch(ctx context.Context) (string, error) {
	if s.closed.Load() {
		return "", ErrSessionClosed
	}
	return s.conn.Unwatch(ctx)
}

// Pipeline opens a pipeline on this session's connection.
func (s *Session) Pipeline() (redis.Pipeliner, error) {
	p, err := s.pipeliner()
	if err != nil {
		return nil, err
	}
	return p.Pipeline(), nil
}

// TxPipeline opens a MULTI/EXEC pipeline on this session's connection.
func (s *Session) TxPipeline() (redis.Pipeliner, error) {
	p, err := s.pipeliner()
	if err != nil {
		return nil, err
	}
	return p.TxPipeline(), nil
}

func (s *Session) pipeliner() (transport.Pipeliner, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	return s.conn.Client()
}

// Close releases the session's connection. Only the first call has any
// effect; release failures are logged and returned.
func (s *Session) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	metrics.ConnectionsInUse.Dec()
	if err := s.conn.Close(); err != nil {
		metrics.ConnectionReleaseErrorsTotal.Inc()
		s.logger.Warn("failed to release connection", "error", err)
		return err
	}
	return nil
}

// instrument wraps one command round trip in a span, metrics and a debug log.
func (s *Session) instrument(ctx context.Context, cmd conn.Command, graphID string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, cmd.String(),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redisgraph"),
			attribute.String("db.operation", cmd.String()),
			attribute.String("redisgraph.graph", graphID),
			attribute.String("redisgraph.session", s.id),
		),
	)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)

	metrics.QueryDuration.WithLabelValues(cmd.String()).Observe(elapsed.Seconds())
	metrics.QueriesTotal.WithLabelValues(cmd.String(), metrics.Outcome(err)).Inc()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Debug("graph command failed", "command", cmd, "graph", graphID, "elapsed", elapsed, "error", err)
		return err
	}
	s.logger.Debug("graph command", "command", cmd, "graph", graphID, "elapsed", elapsed)
	return nil
}

func replyString(cmd conn.Command, reply any) (string, error) {
	switch v := reply.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", resultset.NewProtocolError(ErrUnexpectedReply, "%s: expected status string, got %T", cmd, reply)
	}
}

func replyStrings(cmd conn.Command, reply any) ([]string, error) {
	if reply == nil {
		return nil, nil
	}
	items, ok := reply.([]any)
	if !ok {
		return nil, resultset.NewProtocolError(ErrUnexpectedReply, "%s: expected array, got %T", cmd, reply)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if err, ok := item.(error); ok {
			return nil, err
		}
		str, err := replyString(cmd, item)
		if err != nil {
			return nil, err
		}
		out = append(out, str)
	}
	return out, nil
}
