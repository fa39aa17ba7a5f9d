package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Deposit lifecycle
	StatusChangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deposit_status_changes_total",
			Help: "Deposit status change operations by action and outcome",
		},
		[]string{"action", "outcome"}, // action: approved|rejected|completed|cancelled|reverse|pending
	)

	// Currency conversion
	ConversionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "currency_conversions_total",
			Help: "Currency conversion attempts by outcome",
		},
		[]string{"outcome"}, // success|unavailable
	)

	// Reconciliation
	ReconciliationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_reconciliations_total",
			Help: "Wallet reconciliation checks by result",
		},
		[]string{"balanced"}, // true|false
	)
)

// Handler serves the /metrics endpoint.
var Handler = promhttp.Handler

// Init registers all engine collectors with the default registry.
func Init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(StatusChangesTotal)
	prometheus.MustRegister(ConversionsTotal)
	prometheus.MustRegister(ReconciliationsTotal)
}
