package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_redis_errors_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accessdesk_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// AccessRequestsCreated counts requests accepted into the Pending state.
	AccessRequestsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accessdesk_access_requests_created_total",
		Help: "Total number of access requests created",
	})

	// AccessRequestsReviewed counts review decisions by outcome status.
	AccessRequestsReviewed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_access_requests_reviewed_total",
		Help: "Total number of access requests reviewed by outcome",
	}, []string{"status"})

	// DomainRejections counts operations refused by an invariant, by error code and operation.
	DomainRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_domain_rejections_total",
		Help: "Operations refused by a domain rule, by code and operation",
	}, []string{"code", "operation"})

	// CatalogMutations counts software catalog changes by operation.
	CatalogMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_catalog_mutations_total",
		Help: "Total number of software catalog mutations",
	}, []string{"operation"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
