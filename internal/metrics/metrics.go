// Package metrics holds the Prometheus collectors of the gateway.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request modes and outcomes used as label values.
const (
	ModeBlocking  = "blocking"
	ModeStreaming = "streaming"
	ModeUnknown   = "unknown"

	OutcomeOK           = "ok"
	OutcomeBadRequest   = "bad_request"
	OutcomeEngineError  = "engine_error"
	OutcomeClientGone   = "client_gone"
	OutcomeStreamFailed = "stream_failed"
)

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	chunks   prometheus.Counter
}

// New creates a registry with the gateway collectors plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_requests_total",
			Help: "Chat completion requests by mode and outcome.",
		}, []string{"mode", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_request_duration_seconds",
			Help:    "Chat completion latency from request decode to last byte.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"mode"}),
		chunks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bridge_stream_chunks_total",
			Help: "Content-bearing stream chunks written to clients.",
		}),
	}
	reg.MustRegister(
		m.requests,
		m.duration,
		m.chunks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(mode, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(mode, outcome).Inc()
	m.duration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// IncChunks counts one content chunk written to a stream.
func (m *Metrics) IncChunks() {
	if m == nil {
		return
	}
	m.chunks.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
