package services

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_completions_total",
			Help: "Completion attempts by activity type and outcome",
		},
		[]string{"activity_type", "outcome"},
	)
	badgesAwardedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "progress_badges_awarded_total",
			Help: "Badges awarded by name",
		},
		[]string{"badge"},
	)
	completionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "progress_completion_duration_seconds",
			Help:    "Duration of recordCompletion including lock wait",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Completion outcomes used as metric labels.
const (
	outcomeRecorded = "recorded"
	outcomeNoop     = "already_completed"
	outcomeRescored = "rescored"
	outcomeInvalid  = "invalid"
	outcomeFailed   = "failed"
)

// RegisterMetrics registers the engine collectors. Call this from main.go
func RegisterMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{completionsTotal, badgesAwardedTotal, completionDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
