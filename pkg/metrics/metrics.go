// Package metrics provides Prometheus metrics for the Briar service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FactsResolvedTotal tracks payload pairs resolved into typed facts
	FactsResolvedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briar",
			Subsystem: "eav",
			Name:      "facts_resolved_total",
			Help:      "Total number of payload pairs resolved into typed facts",
		},
		[]string{"tenant_id", "data_type"},
	)

	// FactsDroppedTotal tracks payload pairs dropped during resolution
	FactsDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briar",
			Subsystem: "eav",
			Name:      "facts_dropped_total",
			Help:      "Total number of payload pairs dropped during resolution by reason",
		},
		[]string{"tenant_id", "reason"},
	)

	// FactReplacementsTotal tracks wholesale fact replacements per property
	FactReplacementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briar",
			Subsystem: "eav",
			Name:      "fact_replacements_total",
			Help:      "Total number of wholesale fact replacements",
		},
		[]string{"tenant_id"},
	)

	// MatchingRunsTotal tracks matching engine runs by outcome
	MatchingRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briar",
			Subsystem: "matching",
			Name:      "runs_total",
			Help:      "Total number of matching engine runs by status",
		},
		[]string{"tenant_id", "status"},
	)

	// MatchingRunDuration tracks matching run duration in seconds
	MatchingRunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "briar",
			Subsystem: "matching",
			Name:      "run_duration_seconds",
			Help:      "Duration of matching runs in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"tenant_id"},
	)

	// MatchesCreatedTotal tracks match records created
	MatchesCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briar",
			Subsystem: "matching",
			Name:      "matches_created_total",
			Help:      "Total number of match records created",
		},
		[]string{"tenant_id"},
	)

	// NotificationFailuresTotal tracks notification dispatch failures
	NotificationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "briar",
			Subsystem: "notify",
			Name:      "failures_total",
			Help:      "Total number of notification dispatch failures",
		},
		[]string{"tenant_id"},
	)
)
