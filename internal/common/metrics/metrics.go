// internal/common/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of job processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task_type"},
	)

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	PipelineStageDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheme_pipeline_stage_dropped_total",
			Help: "Schemes removed by each matching stage",
		},
		[]string{"stage"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scheme_search_duration_seconds",
			Help:    "Latency of scheme index searches",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"index"},
	)

	PaginationAdvance = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheme_pagination_advance_total",
			Help: "Show-more requests by outcome",
		},
		[]string{"outcome"},
	)
)

// Advance outcomes.
const (
	OutcomePage         = "page"
	OutcomeExhausted    = "exhausted"
	OutcomeNoPriorState = "no_prior_search"
)

// JobTimer tracks one job from activation to completion.
type JobTimer struct {
	taskType string
	start    time.Time
}

// StartJob marks a job active; call Done exactly once.
func StartJob(taskType string) *JobTimer {
	WorkerJobsActive.WithLabelValues(taskType).Inc()
	return &JobTimer{taskType: taskType, start: time.Now()}
}

// Done records the duration and the outcome. An empty errorCode counts as
// completed.
func (t *JobTimer) Done(errorCode string) {
	WorkerJobsActive.WithLabelValues(t.taskType).Dec()
	WorkerJobDuration.WithLabelValues(t.taskType).Observe(time.Since(t.start).Seconds())
	if errorCode == "" {
		WorkerJobsCompleted.WithLabelValues(t.taskType).Inc()
		return
	}
	WorkerJobsFailed.WithLabelValues(t.taskType, errorCode).Inc()
}

// RecordStageDrops adds per-stage drop counts.
func RecordStageDrops(drops map[string]int) {
	for stage, n := range drops {
		if n > 0 {
			PipelineStageDropped.WithLabelValues(stage).Add(float64(n))
		}
	}
}
