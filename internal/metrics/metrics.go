package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TickOutcomes counts terminal evaluation states per channel per tick.
	TickOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "producer_tick_outcomes_total",
			Help: "Terminal evaluation outcomes per channel per tick",
		},
		[]string{"outcome"}, // not_due, over_budget, locked, succeeded, failed
	)

	// ProductionDuration tracks wall-clock time of pipeline calls. Buckets
	// cover seconds to the lease TTL ceiling since renders run for minutes.
	ProductionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "producer_production_duration_seconds",
			Help: "Duration of production pipeline calls in seconds",
			Buckets: []float64{
				1, 5, 15, 30, 60, 120, 300, 600, 900,
			},
		},
		[]string{"status"}, // success or failure
	)

	// StaleLeaseReclaims counts leases taken over after their TTL expired
	// without a release, i.e. a previous attempt died without cleanup.
	StaleLeaseReclaims = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "producer_stale_leases_reclaimed_total",
			Help: "Expired production leases reclaimed by a later tick",
		},
	)

	// CostOverruns counts productions whose settled cost pushed a channel
	// past its daily cap. The spend already happened, so it is flagged here
	// rather than blocked.
	CostOverruns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "producer_cost_overruns_total",
			Help: "Productions whose actual cost exceeded the daily cap",
		},
	)
)

// RecordOutcome records the terminal state of one channel evaluation.
func RecordOutcome(outcome string) {
	TickOutcomes.WithLabelValues(outcome).Inc()
}

// ObserveProduction records the duration of one pipeline call.
func ObserveProduction(status string, seconds float64) {
	ProductionDuration.WithLabelValues(status).Observe(seconds)
}
