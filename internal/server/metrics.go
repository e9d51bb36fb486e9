package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	researchRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askagent_research_runs_total",
		Help: "Research runs by outcome.",
	}, []string{"outcome"})

	researchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "askagent_research_duration_seconds",
		Help:    "End to end research pipeline duration.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	sourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "askagent_source_failures_total",
		Help: "Per-source degradations during research runs.",
	}, []string{"source"})

	retentionDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "askagent_retention_runs_deleted_total",
		Help: "Runs removed by the retention cleaner.",
	})
)
