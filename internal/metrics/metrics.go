package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LedgerConnects counts connection attempts to the ledger by outcome
	LedgerConnects = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_ledger_connects_total",
			Help: "Total number of ledger connection attempts",
		},
		[]string{"status"},
	)

	// RefreshesTotal counts balance refreshes by ledger type and outcome
	RefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_balance_refreshes_total",
			Help: "Total number of balance refresh attempts",
		},
		[]string{"ledger", "status"},
	)

	// RefreshDuration tracks balance refresh latency
	RefreshDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "session_balance_refresh_duration_seconds",
			Help:    "Balance refresh duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"ledger"},
	)

	// SigningOutcomes counts signing round trips by result
	SigningOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_signing_outcomes_total",
			Help: "Total number of resolved signing round trips",
		},
		[]string{"result"},
	)

	// TrustLineAnomalies counts refreshes that saw more than one matching trust line
	TrustLineAnomalies = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "session_trustline_anomalies_total",
			Help: "Total number of refreshes with multiple matching trust lines",
		},
	)

	// NetworkSwitches counts explicit network switches by target network
	NetworkSwitches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_network_switches_total",
			Help: "Total number of explicit network switches",
		},
		[]string{"network"},
	)
)
