// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CurriculumLoads counts source retrievals that actually ran (cache hits are not counted).
	CurriculumLoads = promauto.NewCounter(prometheus.CounterOpts{
		Name: "curriculum_loads_total",
		Help: "Number of curriculum retrievals from sources.",
	})

	// CurriculumSourceFailures counts sources skipped during a load.
	CurriculumSourceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "curriculum_source_failures_total",
		Help: "Curriculum sources skipped because they failed to fetch, validate or parse.",
	}, []string{"stage"})

	// CurriculumLoadDuration observes wall time of a full fan-out load.
	CurriculumLoadDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "curriculum_load_duration_seconds",
		Help:    "Duration of curriculum retrieval across all sources.",
		Buckets: prometheus.DefBuckets,
	})

	// CurriculumSkills reports the number of indexed skills after the last load.
	CurriculumSkills = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "curriculum_indexed_skills",
		Help: "Skills in the skill index after the most recent load.",
	})

	// ChallengeProgress counts progress reports by challenge type.
	ChallengeProgress = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_progress_reports_total",
		Help: "Progress reports applied to daily challenges.",
	}, []string{"type"})

	// ChallengeClaims counts claim attempts by result ("claimed" or "rejected").
	ChallengeClaims = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "challenge_claims_total",
		Help: "Daily challenge claim attempts.",
	}, []string{"result"})

	// RosterResets counts daily roster regenerations.
	RosterResets = promauto.NewCounter(prometheus.CounterOpts{
		Name: "challenge_roster_resets_total",
		Help: "Daily challenge rosters regenerated.",
	})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
