package redisgraph

import (
	"strconv"
	"time"

	"github.com/orneryd/redisgraph/pkg/conn"
)

// compactFlag asks the server for the compact reply format.
const compactFlag = "--compact"

// Query describes one graph query dispatch.
type Query struct {
	// GraphID names the graph; it is also the cluster routing key.
	GraphID string
	// Text is the prepared query text, parameter header included.
	Text string
	// Timeout is forwarded to the server in milliseconds. Zero means none.
	Timeout time.Duration
	// ReadOnly selects GRAPH.RO_QUERY.
	ReadOnly bool
}

func (q Query) command() conn.Command {
	if q.ReadOnly {
		return conn.GraphReadOnlyQuery
	}
	return conn.GraphQuery
}

func (q Query) args() []string {
	args := []string{q.GraphID, q.Text, compactFlag}
	if q.Timeout > 0 {
		ms := q.Timeout.Milliseconds()
		if ms == 0 {
			ms = 1
		}
		args = append(args, "timeout", strconv.FormatInt(ms, 10))
	}
	return args
}
