package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ProviderRequestDuration observes outbound REST provider calls by
	// provider name and outcome ("ok" / "error").
	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wallet_provider_request_duration_seconds",
			Help:    "Duration of balance/price/history provider requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "outcome"},
	)

	// StatusRefreshTotal counts periodic network-status refreshes by network
	// kind and outcome.
	StatusRefreshTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_status_refresh_total",
			Help: "Periodic network status refresh attempts.",
		},
		[]string{"network", "outcome"},
	)

	// BroadcastsTotal counts executed transfers by network kind and terminal
	// status (mined, confirmed, failed, timeout).
	BroadcastsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_broadcasts_total",
			Help: "Signed transfer broadcasts by terminal status.",
		},
		[]string{"network", "status"},
	)

	// DerivationDuration observes the wall-clock time of the memory-hard key
	// derivation.
	DerivationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "wallet_key_derivation_duration_seconds",
			Help:    "Duration of credential hash derivation.",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 13},
		},
	)
)

// MustRegister registers all wallet collectors with the default registry.
// Call once from main.
func MustRegister() {
	prometheus.MustRegister(
		ProviderRequestDuration,
		StatusRefreshTotal,
		BroadcastsTotal,
		DerivationDuration,
	)
}
