package approval

import (
	"github.com/prometheus/client_golang/prometheus"

	"trade-approval-go/internal/models"
)

var (
	mtxRequests = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_requests_total",
			Help: "Trade approval requests received",
		},
	)

	mtxDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_decisions_total",
			Help: "Settled trades by outcome (approved|rejected|timeout)",
		},
		[]string{"outcome"},
	)

	mtxProcessingFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "approval_processing_failures_total",
			Help: "Background processing failures by stage (chart|notify)",
		},
		[]string{"stage"},
	)

	mtxEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "approval_evicted_total",
			Help: "Trades removed by the retention sweep",
		},
	)

	mtxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "approval_pending_trades",
			Help: "Trades currently awaiting a decision",
		},
	)
)

func init() {
	prometheus.MustRegister(mtxRequests, mtxDecisions, mtxProcessingFailures, mtxEvicted, mtxPending)
}

func IncRequests()                      { mtxRequests.Inc() }
func IncDecision(outcome models.Status) { mtxDecisions.WithLabelValues(string(outcome)).Inc() }
func IncProcessingFailure(stage string) { mtxProcessingFailures.WithLabelValues(stage).Inc() }
func AddEvicted(n int)                  { mtxEvicted.Add(float64(n)) }
func SetPendingTrades(n int)            { mtxPending.Set(float64(n)) }
