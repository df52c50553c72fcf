package accumulator

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.dedis.ch/tct"
)

// defines prometheus metrics
var (
	promInserts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tct_inserts_total",
		Help: "total number of commitments inserted one by one",
	}, []string{"mode"})

	promInsertFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tct_insert_failures_total",
		Help: "total number of rejected insertions",
	}, []string{"level", "reason"})

	promForgets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tct_forgets_total",
		Help: "total number of commitments forgotten on request",
	})

	promEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tct_evictions_total",
		Help: "total number of positions forgotten because their commitment was inserted again",
	})

	promWitnessed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tct_witnessed",
		Help: "number of commitments that can be witnessed",
	})
)

func init() {
	tct.PromCollectors = append(tct.PromCollectors, promInserts, promInsertFailures,
		promForgets, promEvictions, promWitnessed)
}
