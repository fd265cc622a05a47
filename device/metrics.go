package device

import "github.com/prometheus/client_golang/prometheus"

var (
	monitorRestartTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wideq_monitor_restart_total",
			Help: "Monitoring sessions restarted after expiring",
		},
	)
	pollTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "wideq_device_poll_total",
			Help: "Device status polls performed",
		},
	)
)

// MetricsCollectors returns the collectors for the device layer. Callers
// register them on their own registry.
func MetricsCollectors() []prometheus.Collector {
	return []prometheus.Collector{
		monitorRestartTotal,
		pollTotal,
	}
}
