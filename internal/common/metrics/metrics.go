// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lead workflow job metrics.
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
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
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
)

// Conversation metrics.
var (
	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "User turns processed, by reply source",
		},
		[]string{"source"},
	)

	ChatStageTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_stage_transitions_total",
			Help: "Conversation stage changes",
		},
		[]string{"from", "to"},
	)

	ChatLeadScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_lead_score",
			Help:    "Lead score after each user turn",
			Buckets: []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
		},
	)

	ChatActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_actions_total",
			Help: "Button actions handled",
		},
		[]string{"action"},
	)

	ChatActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_active_sessions",
			Help: "Conversation controllers currently held in memory",
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_store_errors_total",
			Help: "Conversation store failures that were degraded or swallowed",
		},
		[]string{"store", "operation"},
	)

	AnalyticsEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_analytics_events_total",
			Help: "Analytics events by name and outcome",
		},
		[]string{"event", "outcome"},
	)

	LeadHandoffs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_lead_handoffs_total",
			Help: "Qualified leads handed to the lead workflow",
		},
		[]string{"outcome"},
	)
)
