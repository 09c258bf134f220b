package supervisor

import "github.com/prometheus/client_golang/prometheus"

var (
	childrenRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dualserve",
			Subsystem: "supervisor",
			Name:      "children_running",
			Help:      "Supervised child processes currently running",
		},
	)

	childLaunchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dualserve",
			Subsystem: "supervisor",
			Name:      "launches_total",
			Help:      "Child launch attempts by outcome",
		},
		[]string{"service", "outcome"},
	)

	childExitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dualserve",
			Subsystem: "supervisor",
			Name:      "exits_total",
			Help:      "Child terminations by final state",
		},
		[]string{"service", "state"},
	)

	shutdownsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dualserve",
			Subsystem: "supervisor",
			Name:      "shutdowns_total",
			Help:      "Shutdown sequences by trigger",
		},
		[]string{"trigger"},
	)

	forceKillsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dualserve",
			Subsystem: "supervisor",
			Name:      "force_kills_total",
			Help:      "Children killed after the grace period elapsed",
		},
		[]string{"service"},
	)
)

func init() {
	prometheus.MustRegister(childrenRunning, childLaunchesTotal, childExitsTotal, shutdownsTotal, forceKillsTotal)
}
