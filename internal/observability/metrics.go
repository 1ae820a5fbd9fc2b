package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_turns_total",
			Help: "Total number of answered questions by outcome.",
		},
		[]string{"outcome"},
	)

	queryDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckask_query_duration_seconds",
			Help:    "DuckDB query execution latency, including dataset load.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	completionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckask_completions_total",
			Help: "Total number of chat completion requests by response format and status.",
		},
		[]string{"format", "status"},
	)

	completionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "duckask_completion_duration_seconds",
			Help:    "Chat completion round-trip latency.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)
)

func init() {
	prometheus.MustRegister(turnsTotal, queryDurationSeconds, completionsTotal, completionDurationSeconds)
}

func ObserveTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

func ObserveQuery(elapsed time.Duration, err error) {
	queryDurationSeconds.WithLabelValues(statusLabel(err)).Observe(elapsed.Seconds())
}

func ObserveCompletion(format string, elapsed time.Duration, err error) {
	completionsTotal.WithLabelValues(format, statusLabel(err)).Inc()
	completionDurationSeconds.Observe(elapsed.Seconds())
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
