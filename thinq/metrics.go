package thinq

import "github.com/prometheus/client_golang/prometheus"

var (
	refreshSuccessTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wideq_auth_refresh_success_total",
			Help: "Successful access token refreshes",
		},
	)
	refreshFailureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wideq_auth_refresh_failure_total",
			Help: "Failed access token refreshes",
		},
	)
	tokenValid = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "wideq_auth_token_valid",
			Help: "Access token validity (1=valid, 0=invalid)",
		},
	)
	apiErrorTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wideq_api_error_total",
			Help: "API requests that ended in an error envelope",
		},
	)
)

// MetricsCollectors returns the collectors for the core API layer. Callers
// register them on their own registry.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		refreshSuccessTotal,
		refreshFailureTotal,
		tokenValid,
		apiErrorTotal,
	}
}
