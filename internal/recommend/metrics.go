package recommend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK             = "ok"
	outcomeInvalidAnswers = "invalid_answers"
	outcomeCatalog        = "catalog_error"
	outcomeConflict       = "conflict"
	outcomePersistence    = "persistence_error"
)

var (
	submissionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compass",
		Name:      "submissions_total",
		Help:      "Test submissions by outcome.",
	}, []string{"outcome"})

	submissionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "compass",
		Name:      "submission_duration_seconds",
		Help:      "Time from receiving answers to a persisted recommendation.",
		Buckets:   prometheus.DefBuckets,
	})

	recommendationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compass",
		Name:      "recommendations_total",
		Help:      "Recommended majors by major code.",
	}, []string{"major_code"})

	catalogUpdatesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "compass",
		Name:      "catalog_updates_total",
		Help:      "Catalog update events received.",
	})
)
