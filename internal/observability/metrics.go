package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry *prometheus.Registry

	Submissions        *prometheus.CounterVec
	GenerationLatency  prometheus.Histogram
	GenerationFailures prometheus.Counter
	ResetDeletes       *prometheus.CounterVec
	LiveSubscribers    prometheus.Gauge
	ChangeBatches      *prometheus.CounterVec
	WSMessages         *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Chat submissions by mode and result code.",
		}, []string{"mode", "code"}),
		GenerationLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_latency_ms",
			Help:      "Latency of text generation calls in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 30000},
		}),
		GenerationFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_failures_total",
			Help:      "Text generation calls that failed.",
		}),
		ResetDeletes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reset_deletes_total",
			Help:      "Per-turn deletes issued by bulk reset, by outcome.",
		}, []string{"outcome"}),
		LiveSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_subscribers",
			Help:      "Open live view connections.",
		}),
		ChangeBatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "change_batches_total",
			Help:      "Change batches by source.",
		}, []string{"source"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
	}
}

func (m *Metrics) ObserveSubmission(mode string, code string) {
	m.Submissions.WithLabelValues(mode, code).Inc()
}

func (m *Metrics) ObserveGeneration(d time.Duration, err error) {
	m.GenerationLatency.Observe(float64(d.Milliseconds()))
	if err != nil {
		m.GenerationFailures.Inc()
	}
}

func (m *Metrics) ObserveResetDelete(failed bool) {
	outcome := "deleted"
	if failed {
		outcome = "failed"
	}
	m.ResetDeletes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveChangeBatch(source string) {
	m.ChangeBatches.WithLabelValues(source).Inc()
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
