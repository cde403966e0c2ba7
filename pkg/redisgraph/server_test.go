package redisgraph

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/orneryd/redisgraph/pkg/resultset"
)

// fakeServer scripts just enough RedisGraph to exercise the client:
//
//	CREATE <Label>   assigns the next label id and the "name" property key
//	MATCH <Label>    returns one node of that label
//	CALL db.*()      lists the graph's schema in id order
//
// Ids are assigned per graph in creation order, so a deleted and recreated
// graph hands out different ids for the same names.
type fakeServer struct {
	mu          sync.Mutex
	graphs      map[string]*fakeGraph
	schemaCalls map[string]int
	queryErr    error
	deleteErr   error
}

type fakeGraph struct {
	labels    []string
	relations []string
	keys      []string
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		graphs:      make(map[string]*fakeGraph),
		schemaCalls: make(map[string]int),
	}
}

func (f *fakeServer) failQueries(err error) {
	f.mu.Lock()
	f.queryErr = err
	f.mu.Unlock()
}

func (f *fakeServer) failDeletes(err error) {
	f.mu.Lock()
	f.deleteErr = err
	f.mu.Unlock()
}

func (f *fakeServer) schemaFetches(procedure string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.schemaCalls[procedure]
}

func (f *fakeServer) graph(id string) *fakeGraph {
	g, ok := f.graphs[id]
	if !ok {
		g = &fakeGraph{}
		f.graphs[id] = g
	}
	return g
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

func addName(names []string, name string) []string {
	if indexOf(names, name) >= 0 {
		return names
	}
	return append(names, name)
}

func statsReply(lines ...string) []any {
	out := make([]any, len(lines))
	for i, l := range lines {
		out[i] = l
	}
	return out
}

func columnReply(column string, names []string) []any {
	rows := make([]any, len(names))
	for i, n := range names {
		rows[i] = []any{[]any{int64(resultset.ValueString), n}}
	}
	return []any{
		[]any{[]any{int64(resultset.ColumnScalar), column}},
		rows,
		statsReply("Cached execution: 0"),
	}
}

func (f *fakeServer) respond(args []any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cmd, _ := args[0].(string)
	if cmd == "GRAPH.LIST" {
		ids := make([]string, 0, len(f.graphs))
		for id := range f.graphs {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return statsReply(ids...), nil
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("ERR wrong number of arguments for '%s' command", cmd)
	}
	graphID, _ := args[1].(string)

	switch cmd {
	case "GRAPH.DELETE":
		if f.deleteErr != nil {
			return nil, f.deleteErr
		}
		if _, ok := f.graphs[graphID]; !ok {
			return nil, errors.New("ERR Invalid graph operation on empty key")
		}
		delete(f.graphs, graphID)
		return "Graph removed, internal execution time: 0.250000 milliseconds", nil

	case "GRAPH.EXPLAIN":
		return []any{"Results", "    Project"}, nil

	case "GRAPH.QUERY", "GRAPH.RO_QUERY":
		if f.queryErr != nil {
			return nil, f.queryErr
		}
		text, _ := args[2].(string)
		g := f.graph(graphID)
		switch {
		case strings.HasPrefix(text, "CALL db."):
			procedure := strings.TrimSuffix(strings.TrimPrefix(text, "CALL "), "()")
			f.schemaCalls[procedure]++
			switch procedure {
			case "db.labels":
				return columnReply("label", g.labels), nil
			case "db.relationshipTypes":
				return columnReply("relationshipType", g.relations), nil
			default:
				return columnReply("propertyKey", g.keys), nil
			}

		case strings.HasPrefix(text, "CREATE "):
			label := strings.TrimPrefix(text, "CREATE ")
			g.labels = addName(g.labels, label)
			g.keys = addName(g.keys, "name")
			return []any{statsReply("Labels added: 1", "Nodes created: 1", "Properties set: 1")}, nil

		case strings.HasPrefix(text, "MATCH "):
			label := strings.TrimPrefix(text, "MATCH ")
			lid := indexOf(g.labels, label)
			if lid < 0 {
				return []any{[]any{[]any{int64(resultset.ColumnScalar), "n"}}, []any{}, statsReply()}, nil
			}
			node := []any{
				int64(0),
				[]any{int64(lid)},
				[]any{[]any{int64(indexOf(g.keys, "name")), int64(resultset.ValueString), label}},
			}
			return []any{
				[]any{[]any{int64(resultset.ColumnScalar), "n"}},
				[]any{[]any{[]any{int64(resultset.ValueNode), node}}},
				statsReply("Cached execution: 1", "Query internal execution time: 0.100000 milliseconds"),
			}, nil

		default:
			return []any{statsReply("Query internal execution time: 0.100000 milliseconds")}, nil
		}
	}
	return nil, fmt.Errorf("ERR unknown command '%s'", cmd)
}
