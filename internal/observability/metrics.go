// Package observability provides metrics and tracing.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReordersTotal counts accepted list reorders by resource and mode (full, move).
	ReordersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_reorders_total",
		Help: "Total number of accepted list reorders",
	}, []string{"resource", "mode"})

	// ReorderConflicts counts reorders rejected because the caller's version was stale.
	ReorderConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_reorder_conflicts_total",
		Help: "Total number of reorders rejected with a version conflict",
	}, []string{"resource"})

	// InteractionsTotal counts interaction writes by type and direction.
	InteractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_interactions_total",
		Help: "Total number of interaction updates",
	}, []string{"type", "active"})

	// PointsAwarded sums gamification points granted by interaction type.
	PointsAwarded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_points_awarded_total",
		Help: "Total gamification points awarded",
	}, []string{"type"})

	// OptimisticRollbacks counts client-side optimistic updates that were undone.
	OptimisticRollbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_optimistic_rollbacks_total",
		Help: "Total number of optimistic updates rolled back after a failed write",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsdesk_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// CacheLookups counts list cache lookups by outcome (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_cache_lookups_total",
		Help: "Total list cache lookups by outcome",
	}, []string{"outcome"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_websocket_backpressure_drops_total",
		Help: "Total number of websocket messages dropped due to backpressure",
	}, []string{"reason"})

	// EventsPublished counts realtime content events by type.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsdesk_events_published_total",
		Help: "Total realtime content events published",
	}, []string{"event_type"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}
