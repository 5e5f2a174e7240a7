package planner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	planBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "craftplan_plan_build_duration_seconds",
			Help:    "Duration of plan generation in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)

	planRecords = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "craftplan_plan_records",
			Help:    "Number of expansion records per built plan",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
	)

	planBuildErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftplan_plan_build_errors_total",
			Help: "Total number of failed plan builds by error code",
		},
		[]string{"code"},
	)

	planCacheResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftplan_plan_builder_cache_total",
			Help: "Plan builder cache lookups by result",
		},
		[]string{"result"},
	)

	sessionMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "craftplan_session_mutations_total",
			Help: "Total number of session mutations by operation and result",
		},
		[]string{"operation", "result"},
	)
)
