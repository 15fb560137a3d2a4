package manager

import "github.com/prometheus/client_golang/prometheus"

var (
	jobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "whisperd",
			Subsystem: "jobs",
			Name:      "total",
			Help:      "Total number of transcription jobs by terminal status",
		},
		[]string{"status"},
	)

	jobDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "whisperd",
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Wall time from submission to terminal state",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)

	jobsInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "whisperd",
			Subsystem: "jobs",
			Name:      "inflight",
			Help:      "Jobs submitted but not yet terminal",
		},
	)

	modelLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperd",
			Subsystem: "model",
			Name:      "loads_total",
			Help:      "Total number of engine model context loads",
		},
	)

	modelLoadFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "whisperd",
			Subsystem: "model",
			Name:      "load_failures_total",
			Help:      "Total number of rejected engine model loads",
		},
	)
)

func init() {
	prometheus.MustRegister(jobsTotal, jobDuration, jobsInflight, modelLoadsTotal, modelLoadFailuresTotal)
}
