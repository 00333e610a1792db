package metrics

import (
	"net/http"
	"time"

	"webhook-dispatcher/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// QueueSource reports how much delivery work is waiting or running.
type QueueSource interface {
	QueueDepth() int
	InFlight() int
}

// DeliveryMetrics implements ports.DeliveryMetrics on a dedicated Prometheus registry.
type DeliveryMetrics struct {
	registry   *prometheus.Registry
	deliveries *prometheus.CounterVec
	attempts   prometheus.Counter
	duration   *prometheus.HistogramVec
}

// NewDeliveryMetrics registers the delivery instruments plus Go runtime and process
// collectors. queue may be nil when no worker pool is running.
func NewDeliveryMetrics(queue QueueSource) *DeliveryMetrics {
	reg := prometheus.NewRegistry()

	m := &DeliveryMetrics{
		registry: reg,
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_deliveries_total",
			Help: "Finished webhook deliveries by outcome.",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "webhook_delivery_attempts_total",
			Help: "HTTP attempts made across all deliveries.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "webhook_delivery_duration_seconds",
			Help:    "Wall-clock time from first attempt to final outcome, backoff included.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		m.deliveries,
		m.attempts,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if queue != nil {
		reg.MustRegister(
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "webhook_dispatch_queue_depth",
				Help: "Deliveries waiting for a free worker.",
			}, func() float64 { return float64(queue.QueueDepth()) }),
			prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Name: "webhook_deliveries_in_flight",
				Help: "Deliveries currently being attempted or backing off.",
			}, func() float64 { return float64(queue.InFlight()) }),
		)
	}

	for _, outcome := range []domain.DeliveryOutcome{
		domain.DeliveryOutcomeSuccess, domain.DeliveryOutcomeWarning, domain.DeliveryOutcomeError,
	} {
		m.deliveries.WithLabelValues(string(outcome))
	}
	return m
}

// ObserveDelivery records one finished delivery.
func (m *DeliveryMetrics) ObserveDelivery(outcome domain.DeliveryOutcome, attempts int, elapsed time.Duration) {
	m.deliveries.WithLabelValues(string(outcome)).Inc()
	m.attempts.Add(float64(attempts))
	m.duration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *DeliveryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *DeliveryMetrics) Registry() *prometheus.Registry {
	return m.registry
}
