package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StageJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_stage_completed_total",
			Help: "Total number of stage invocations completed",
		},
		[]string{"stage"},
	)

	StageJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_stage_failed_total",
			Help: "Total number of stage invocations failed",
		},
		[]string{"stage", "error_code"},
	)

	StageJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "analysis_stage_duration_seconds",
			Help: "Duration of stage processing in seconds",
		},
		[]string{"stage"},
	)

	StageJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "analysis_stage_active",
			Help: "Number of active invocations per stage",
		},
		[]string{"stage"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_pipeline_runs_total",
			Help: "Total number of pipeline runs by final status",
		},
		[]string{"status"},
	)

	PipelineDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "analysis_pipeline_duration_seconds",
			Help:    "End-to-end pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)

	CompletionRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "analysis_completion_retries_total",
			Help: "Total completion call retries per stage",
		},
		[]string{"stage"},
	)
)
