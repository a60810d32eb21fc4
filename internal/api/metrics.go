package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Turn outcomes recorded in chat_turns_total.
const (
	outcomeOK              = "ok"
	outcomeMemoryNotSaved  = "memory_not_saved"
	outcomeCompletionError = "completion_error"
	outcomeInvalid         = "invalid"
)

// Metrics holds the Prometheus collectors of the chat API.
type Metrics struct {
	registry           *prometheus.Registry
	Turns              *prometheus.CounterVec
	CompletionDuration prometheus.Histogram
	PoolSize           prometheus.Histogram
}

// NewMetrics registers the collectors on a fresh registry, together with the
// Go runtime and process collectors.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_turns_total",
			Help: "Chat turns by outcome",
		}, []string{"outcome"}),
		CompletionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_completion_duration_seconds",
			Help:    "Completion API latency in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		}),
		PoolSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "chat_memory_pool_size",
			Help:    "Ranked exchanges recalled per turn",
			Buckets: []float64{0, 1, 3, 5, 10, 15, 25},
		}),
	}
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
