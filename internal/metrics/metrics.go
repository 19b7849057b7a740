// Package metrics exposes the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors plus the Go/process ones.
	Registry = prometheus.NewRegistry()

	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bancas",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bancas",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	PagosRegistrados = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bancas",
		Subsystem: "pagos",
		Name:      "registrados_total",
		Help:      "Payments applied to winning tickets.",
	})

	PagosReplay = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bancas",
		Subsystem: "pagos",
		Name:      "replayed_total",
		Help:      "Payment requests answered from an existing idempotency key.",
	})

	PagosRechazados = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bancas",
			Subsystem: "pagos",
			Name:      "rechazados_total",
			Help:      "Payment and reversal requests refused by the ledger.",
		},
		[]string{"code"},
	)

	PagosRevertidos = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bancas",
		Subsystem: "pagos",
		Name:      "revertidos_total",
		Help:      "Payments reversed.",
	})

	Jobs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bancas",
			Subsystem: "worker",
			Name:      "jobs_total",
			Help:      "Async jobs processed by type and outcome.",
		},
		[]string{"type", "status"},
	)

	SorteosCerrados = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bancas",
		Subsystem: "sorteos",
		Name:      "cerrados_total",
		Help:      "Sorteos closed by the scheduler.",
	})
)

func init() {
	Registry.MustRegister(
		HTTPRequests,
		HTTPDuration,
		PagosRegistrados,
		PagosReplay,
		PagosRechazados,
		PagosRevertidos,
		Jobs,
		SorteosCerrados,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
