// Package resultset decodes compact RedisGraph replies into typed result sets.
//
// Compact replies carry schema ids (label, relationship type and property key
// ids) instead of names; the decoder resolves them through a SchemaResolver,
// normally a graph's schema cache entry bound to the connection the reply
// arrived on.
//
// Reply shapes:
//
//	[statistics]                     write-only query
//	[header, records, statistics]    query returning rows
//
// Anything else is reported as a *ProtocolError.
package resultset

import (
	"context"
	"fmt"
	"strings"
)

// SchemaResolver maps schema ids found in a compact reply to names.
type SchemaResolver interface {
	Label(ctx context.Context, id int64) (string, error)
	RelationshipType(ctx context.Context, id int64) (string, error)
	PropertyKey(ctx context.Context, id int64) (string, error)
}

// ColumnType is the header-level type of a result column.
type ColumnType int

const (
	ColumnUnknown ColumnType = iota
	ColumnScalar
	ColumnNode
	ColumnRelation
)

// ValueType tags each scalar in a compact reply.
type ValueType int

const (
	ValueUnknown ValueType = iota
	ValueNull
	ValueString
	ValueInteger
	ValueBoolean
	ValueDouble
	ValueArray
	ValueEdge
	ValueNode
	ValuePath
	ValueMap
	ValuePoint
)

// Header describes the columns of a result set.
type Header struct {
	Types []ColumnType
	Names []string
}

// Record is one result row.
type Record struct {
	keys   []string
	values []any
}

// NewRecord builds a record; keys and values must have equal length.
func NewRecord(keys []string, values []any) *Record {
	return &Record{keys: keys, values: values}
}

func (r *Record) Keys() []string { return r.keys }
func (r *Record) Values() []any  { return r.values }
func (r *Record) Size() int      { return len(r.values) }

// Get returns the value of the named column.
func (r *Record) Get(key string) (any, bool) {
	for i, k := range r.keys {
		if k == key {
			return r.values[i], true
		}
	}
	return nil, false
}

// GetByIndex returns the value at column i, or nil when out of range.
func (r *Record) GetByIndex(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// GetString returns the named column formatted as a string.
func (r *Record) GetString(key string) string {
	v, ok := r.Get(key)
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (r *Record) String() string {
	var b strings.Builder
	b.WriteString("Record{")
	for i, k := range r.keys {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", k, r.values[i])
	}
	b.WriteString("}")
	return b.String()
}

// Node is a graph node.
type Node struct {
	ID         int64
	Labels     []string
	Properties map[string]any
}

// Edge is a graph relationship.
type Edge struct {
	ID          int64
	Relation    string
	Source      int64
	Destination int64
	Properties  map[string]any
}

// Path is an alternating walk of nodes and edges.
type Path struct {
	Nodes []*Node
	Edges []*Edge
}

// Length is the number of edges in the path.
func (p *Path) Length() int { return len(p.Edges) }

// Point is a geographic coordinate.
type Point struct {
	Latitude  float64
	Longitude float64
}

// ResultSet is a decoded query reply.
type ResultSet struct {
	Header     Header
	Records    []*Record
	Statistics Statistics
}

// Size is the number of records.
func (rs *ResultSet) Size() int { return len(rs.Records) }

// Empty reports whether the reply carried no records.
func (rs *ResultSet) Empty() bool { return len(rs.Records) == 0 }

// Column collects column i of every record.
func (rs *ResultSet) Column(i int) []any {
	out := make([]any, 0, len(rs.Records))
	for _, r := range rs.Records {
		out = append(out, r.GetByIndex(i))
	}
	return out
}
