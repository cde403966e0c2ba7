package resultset

import (
	"strconv"
	"strings"
)

// StatisticsLabel names one entry of the statistics block.
type StatisticsLabel string

const (
	LabelsAdded                StatisticsLabel = "Labels added"
	IndicesCreated             StatisticsLabel = "Indices created"
	IndicesDeleted             StatisticsLabel = "Indices deleted"
	NodesCreated               StatisticsLabel = "Nodes created"
	NodesDeleted               StatisticsLabel = "Nodes deleted"
	PropertiesSet              StatisticsLabel = "Properties set"
	RelationshipsCreated       StatisticsLabel = "Relationships created"
	RelationshipsDeleted       StatisticsLabel = "Relationships deleted"
	CachedExecution            StatisticsLabel = "Cached execution"
	QueryInternalExecutionTime StatisticsLabel = "Query internal execution time"
)

// Statistics is the trailing "Label: value" block of every reply.
type Statistics struct {
	values map[StatisticsLabel]string
}

func parseStatistics(raw any) (Statistics, error) {
	items, ok := raw.([]any)
	if !ok {
		return Statistics{}, NewProtocolError(nil, "statistics: expected array, got %T", raw)
	}
	stats := Statistics{values: make(map[StatisticsLabel]string, len(items))}
	for _, item := range items {
		line, ok := asString(item)
		if !ok {
			return Statistics{}, NewProtocolError(nil, "statistics: expected string, got %T", item)
		}
		label, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimSpace(value)
		// "0.5 milliseconds"
		if i := strings.IndexByte(value, ' '); i > 0 {
			value = value[:i]
		}
		stats.values[StatisticsLabel(strings.TrimSpace(label))] = value
	}
	return stats, nil
}

// Get returns the raw value of label.
func (s Statistics) Get(label StatisticsLabel) (string, bool) {
	v, ok := s.values[label]
	return v, ok
}

// Int returns label as an integer, 0 when absent.
func (s Statistics) Int(label StatisticsLabel) int {
	v, ok := s.values[label]
	if !ok {
		return 0
	}
	n, _ := strconv.Atoi(v)
	return n
}

func (s Statistics) LabelsAdded() int          { return s.Int(LabelsAdded) }
func (s Statistics) IndicesCreated() int       { return s.Int(IndicesCreated) }
func (s Statistics) IndicesDeleted() int       { return s.Int(IndicesDeleted) }
func (s Statistics) NodesCreated() int         { return s.Int(NodesCreated) }
func (s Statistics) NodesDeleted() int         { return s.Int(NodesDeleted) }
func (s Statistics) PropertiesSet() int        { return s.Int(PropertiesSet) }
func (s Statistics) RelationshipsCreated() int { return s.Int(RelationshipsCreated) }
func (s Statistics) RelationshipsDeleted() int { return s.Int(RelationshipsDeleted) }

// CachedExecution reports whether the server reused a cached plan.
func (s Statistics) CachedExecution() bool { return s.Int(CachedExecution) == 1 }

// InternalExecutionTime is the server-side execution time in milliseconds.
func (s Statistics) InternalExecutionTime() float64 {
	v, ok := s.values[QueryInternalExecutionTime]
	if !ok {
		return 0
	}
	f, _ := strconv.ParseFloat(v, 64)
	return f
}
