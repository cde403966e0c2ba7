// Package graphcache keeps the client-side schema caches of RedisGraph graphs.
//
// Compact replies reference labels, relationship types and property keys by
// server-assigned id. Each graph gets one Entry holding three id-indexed name
// lists. Lists only grow: ids are stable for the lifetime of a graph, so a
// miss means the server has assigned new ids since the last refresh and the
// list is refreshed from the corresponding db.* procedure.
//
// Invariants:
//   - One Registry per client, shared by every connection and session the
//     client hands out. All of them observe the same Entry for a graph.
//   - An Entry is created lazily on first use and only removed when the graph
//     is deleted. Remove after a successful delete is the single place that
//     invalidates cached ids.
//   - Lookups never do I/O; refreshes do, through the Fetcher bound by the
//     caller (the connection the reply arrived on).
package graphcache

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/orneryd/redisgraph/pkg/metrics"
	"github.com/orneryd/redisgraph/pkg/resultset"
)

// ErrUnknownSchemaID is wrapped by the *resultset.ProtocolError returned when
// an id is still unknown after refreshing from the server.
var ErrUnknownSchemaID = errors.New("unknown schema id")

// Fetcher loads the complete name list of a schema procedure, in id order.
type Fetcher interface {
	FetchSchema(ctx context.Context, graphID, procedure string) ([]string, error)
}

// Kind selects one of the three schema lists.
type Kind int

const (
	Labels Kind = iota
	RelationshipTypes
	PropertyKeys
)

// Procedure is the server procedure that lists all names of this kind.
func (k Kind) Procedure() string {
	switch k {
	case Labels:
		return "db.labels"
	case RelationshipTypes:
		return "db.relationshipTypes"
	default:
		return "db.propertyKeys"
	}
}

func (k Kind) String() string {
	switch k {
	case Labels:
		return "label"
	case RelationshipTypes:
		return "relationship_type"
	default:
		return "property_key"
	}
}

type list struct {
	kind  Kind
	mu    sync.RWMutex
	names []string
	group singleflight.Group
}

func (l *list) lookup(id int64) (string, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if id < 0 || id >= int64(len(l.names)) {
		return "", false
	}
	return l.names[id], true
}

func (l *list) size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.names)
}

func (l *list) get(ctx context.Context, graphID string, f Fetcher, id int64) (string, error) {
	if name, ok := l.lookup(id); ok {
		return name, nil
	}

	// Concurrent misses on the same list share one round trip.
	_, err, _ := l.group.Do(l.kind.Procedure(), func() (any, error) {
		names, err := f.FetchSchema(ctx, graphID, l.kind.Procedure())
		if err != nil {
			return nil, err
		}
		metrics.SchemaCacheRefreshTotal.WithLabelValues(l.kind.String()).Inc()
		l.mu.Lock()
		if n := len(l.names); len(names) > n {
			l.names = append(l.names[:n:n], names[n:]...)
		}
		l.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return "", err
	}

	if name, ok := l.lookup(id); ok {
		return name, nil
	}
	return "", resultset.NewProtocolError(ErrUnknownSchemaID, "%s id %d in graph %q", l.kind, id, graphID)
}

// Entry is the schema cache of one graph.
type Entry struct {
	graphID string
	lists   [3]*list
}

func newEntry(graphID string) *Entry {
	e := &Entry{graphID: graphID}
	for k := range e.lists {
		e.lists[k] = &list{kind: Kind(k)}
	}
	return e
}

// GraphID is the graph this entry caches.
func (e *Entry) GraphID() string { return e.graphID }

// Size reports how many names of kind are cached.
func (e *Entry) Size(kind Kind) int { return e.lists[kind].size() }

// Name resolves id of kind, refreshing through f on a miss.
func (e *Entry) Name(ctx context.Context, f Fetcher, kind Kind, id int64) (string, error) {
	return e.lists[kind].get(ctx, e.graphID, f, id)
}

// Bind returns a resultset.SchemaResolver that refreshes through f.
func (e *Entry) Bind(f Fetcher) *Resolver {
	return &Resolver{entry: e, fetcher: f}
}

// Resolver is an Entry bound to the connection that can refresh it.
type Resolver struct {
	entry   *Entry
	fetcher Fetcher
}

var _ resultset.SchemaResolver = (*Resolver)(nil)

func (r *Resolver) Label(ctx context.Context, id int64) (string, error) {
	return r.entry.Name(ctx, r.fetcher, Labels, id)
}

func (r *Resolver) RelationshipType(ctx context.Context, id int64) (string, error) {
	return r.entry.Name(ctx, r.fetcher, RelationshipTypes, id)
}

func (r *Resolver) PropertyKey(ctx context.Context, id int64) (string, error) {
	return r.entry.Name(ctx, r.fetcher, PropertyKeys, id)
}

// Registry maps graph identifiers to their schema cache entries.
//
// Thread-safe: all operations are protected by mutex.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]*Entry)}
}

// LookupOrCreate returns the entry for graphID, creating an empty one if
// needed. Concurrent callers for the same graph receive the same entry.
func (r *Registry) LookupOrCreate(graphID string) *Entry {
	r.mu.RLock()
	e, ok := r.entries[graphID]
	r.mu.RUnlock()
	if ok {
		return e
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[graphID]; ok {
		return e
	}
	e = newEntry(graphID)
	r.entries[graphID] = e
	metrics.SchemaCacheEntries.Inc()
	return e
}

// Lookup returns the entry for graphID without creating one.
func (r *Registry) Lookup(graphID string) (*Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[graphID]
	return e, ok
}

// Remove evicts graphID. It reports whether an entry existed; removing an
// absent graph is a no-op.
func (r *Registry) Remove(graphID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[graphID]; !ok {
		return false
	}
	delete(r.entries, graphID)
	metrics.SchemaCacheEntries.Dec()
	metrics.SchemaCacheEvictionsTotal.Inc()
	return true
}

// Len is the number of cached graphs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Graphs lists cached graph identifiers in sorted order.
func (r *Registry) Graphs() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.entries))
	for id := range r.entries {
		out = append(out, id)
	}
	r.mu.RUnlock()
	sort.Strings(out)
	return out
}
