package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Session metrics
	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospect_research_sessions_total",
			Help: "Total number of research sessions by final status",
		},
		[]string{"status"},
	)

	SessionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "prospect_research_session_duration_seconds",
			Help:    "Research session duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600},
		},
	)

	// Search metrics
	QueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospect_research_queries_total",
			Help: "Search queries issued, by research phase",
		},
		[]string{"phase"},
	)

	SearchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "prospect_research_search_failures_total",
			Help: "Search calls that degraded to an empty result",
		},
	)

	// Model output metrics
	LearningsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospect_research_learnings_total",
			Help: "Learnings extracted, by category",
		},
		[]string{"category"},
	)

	ParseFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "prospect_research_parse_failures_total",
			Help: "Model answers that could not be parsed or validated, by step",
		},
		[]string{"step"},
	)
)
