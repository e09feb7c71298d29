package admission

import "github.com/prometheus/client_golang/prometheus"

var (
	metricOrdersAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_orders_admitted_total",
		Help: "Orders that passed every admission stage and were executed",
	})
	metricOrdersRejected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_orders_rejected_total",
		Help: "Orders rejected by an admission stage",
	}, []string{"stage", "reason"})
	metricPaperFills = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_paper_fills_total",
		Help: "Simulated fills written to the ledger",
	})
	metricPaperRejections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_paper_rejections_total",
		Help: "Simulated exchange rejections (reservation still consumed)",
	})
	metricLedgerFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "gate_ledger_write_failures_total",
		Help: "Ledger writes that failed after bounded retries",
	})
)

func init() {
	prometheus.MustRegister(
		metricOrdersAdmitted, metricOrdersRejected,
		metricPaperFills, metricPaperRejections, metricLedgerFailures,
	)
}
