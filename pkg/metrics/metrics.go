// Package metrics holds the Prometheus collectors of the RedisGraph client.
// Collectors register with the default registry on import.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics definitions
var (
	QueriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redisgraph_client_queries_total",
		Help: "Total number of graph commands dispatched, by command and outcome.",
	}, []string{"command", "outcome"})

	QueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "redisgraph_client_query_seconds",
		Help:    "Round-trip time of a graph command including reply decoding.",
		Buckets: prometheus.DefBuckets,
	}, []string{"command"})

	ConnectionsInUse = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redisgraph_client_connections_in_use",
		Help: "Connections currently acquired by queries or sessions.",
	})

	ConnectionReleaseErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redisgraph_client_connection_release_errors_total",
		Help: "Total number of failures returning a connection to its pool.",
	})

	SchemaCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "redisgraph_client_schema_cache_entries",
		Help: "Number of graphs with a cached schema.",
	})

	SchemaCacheRefreshTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redisgraph_client_schema_cache_refresh_total",
		Help: "Total number of schema list refreshes fetched from the server, by kind.",
	}, []string{"kind"})

	SchemaCacheEvictionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redisgraph_client_schema_cache_evictions_total",
		Help: "Total number of schema cache entries evicted after a graph delete.",
	})
)

// Outcome maps an error to its outcome label.
func Outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}
