package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angeloszaimis/provider-dispatch/internal/circuitbreaker"
	"github.com/angeloszaimis/provider-dispatch/internal/provider"
)

// Exporter publishes dispatch metrics in the Prometheus format. Each exporter
// owns its registry so several can coexist in one process.
type Exporter struct {
	registry *prometheus.Registry

	// attempts counts provider calls and skips.
	// Labels:
	//   - provider: provider name (e.g., "gemini")
	//   - outcome: success, retryable_failure, fatal_failure, cancelled, skipped
	attempts *prometheus.CounterVec

	// backoff observes the wait scheduled after each retryable failure.
	backoff *prometheus.HistogramVec

	// breakerState is 0 for closed, 1 for open and 2 for half-open.
	breakerState *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "provider_attempts_total",
				Help: "Total number of AI provider attempts by outcome",
			},
			[]string{"provider", "outcome"},
		),
		backoff: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "provider_backoff_seconds",
				Help:    "Backoff delay scheduled before a provider retry",
				Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
			},
			[]string{"provider"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "provider_breaker_state",
				Help: "Circuit breaker state per provider (0 closed, 1 open, 2 half-open)",
			},
			[]string{"provider"},
		),
	}

	e.registry.MustRegister(e.attempts, e.backoff, e.breakerState)
	return e
}

func (e *Exporter) recordAttempt(a provider.Attempt) {
	e.attempts.WithLabelValues(a.Provider, string(a.Outcome)).Inc()
	if a.Delay > 0 {
		e.backoff.WithLabelValues(a.Provider).Observe(a.Delay.Seconds())
	}
}

func (e *Exporter) recordBreakerState(name string, state circuitbreaker.State) {
	e.breakerState.WithLabelValues(name).Set(float64(state))
}

// Handler serves the registry in the Prometheus text format.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
