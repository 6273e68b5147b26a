package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the engine's Prometheus collectors.
	Registry = prometheus.NewRegistry()

	joins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sambatan",
			Subsystem: "pool",
			Name:      "joins_total",
			Help:      "Join attempts by outcome.",
		},
		[]string{"outcome"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sambatan",
			Subsystem: "pool",
			Name:      "transitions_total",
			Help:      "Pool status transitions.",
		},
		[]string{"to"},
	)

	sweeps = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sambatan",
			Subsystem: "sweeper",
			Name:      "runs_total",
			Help:      "Completed sweeper runs.",
		},
	)

	sweptPools = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sambatan",
			Subsystem: "sweeper",
			Name:      "expired_pools_total",
			Help:      "Pools cancelled by the expiration sweeper.",
		},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sambatan",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms .. ~5s
		},
		[]string{"method", "path"},
	)
)

func init() {
	Registry.MustRegister(joins, transitions, sweeps, sweptPools, httpDuration)
}

func ObserveJoin(outcome string)  { joins.WithLabelValues(outcome).Inc() }
func ObserveTransition(to string) { transitions.WithLabelValues(to).Inc() }

func ObserveSweep(expired int) {
	sweeps.Inc()
	sweptPools.Add(float64(expired))
}

func ObserveHTTP(method, path string, d time.Duration) {
	httpDuration.WithLabelValues(method, path).Observe(d.Seconds())
}

// Handler serves the registry for /metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
