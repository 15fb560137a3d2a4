package engine

import "github.com/prometheus/client_golang/prometheus"

// progressDroppedTotal counts progress updates discarded because the
// receiver's channel was full. Drops are expected under load; progress
// is diagnostic only.
var progressDroppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "whisperd",
		Subsystem: "engine",
		Name:      "progress_dropped_total",
		Help:      "Progress updates dropped due to a full channel",
	},
)

func init() {
	prometheus.MustRegister(progressDroppedTotal)
}
