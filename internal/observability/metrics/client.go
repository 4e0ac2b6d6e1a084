package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ClientMetrics instruments the client side of the document-chat protocol:
// server round trips, upload reconciliation outcomes, citation parsing and
// highlight resolution. All record methods are nil-safe so call sites never
// guard on the metrics being wired.
type ClientMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	reconcileFilesTotal  *prometheus.CounterVec
	citationTokensTotal  *prometheus.CounterVec
	answerConfidence     prometheus.Histogram
	answerLatency        prometheus.Histogram
	highlightTargetTotal *prometheus.CounterVec
}

func NewClientMetrics(service string) *ClientMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total server round trips by operation and outcome.",
		},
		[]string{"service", "operation", "outcome"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "Server round trip duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docchat",
			Subsystem: "api",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight server round trips.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	reconcileFilesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "upload",
			Name:      "reconciled_files_total",
			Help:      "Upload batch entries by reconciliation outcome.",
		},
		[]string{"service", "outcome"},
	)
	citationTokensTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "citation",
			Name:      "tokens_total",
			Help:      "Citation tokens seen in answer text by parse result.",
		},
		[]string{"service", "result"},
	)
	answerConfidence := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "ask",
			Name:      "answer_confidence",
			Help:      "Distribution of server-reported answer confidence.",
			Buckets:   []float64{0.1, 0.25, 0.5, 0.7, 0.8, 0.9, 0.95, 1},
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	answerLatency := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "docchat",
			Subsystem: "ask",
			Name:      "answer_latency_seconds",
			Help:      "Server-reported answer generation latency in seconds.",
			Buckets:   prometheus.DefBuckets,
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	highlightTargetTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docchat",
			Subsystem: "highlight",
			Name:      "targets_total",
			Help:      "Citation highlight resolutions by result.",
		},
		[]string{"service", "result"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		reconcileFilesTotal,
		citationTokensTotal,
		answerConfidence,
		answerLatency,
		highlightTargetTotal,
	)

	return &ClientMetrics{
		registry:             registry,
		requestTotal:         requestTotal,
		requestDuration:      requestDuration,
		requestInFlight:      requestInFlight,
		reconcileFilesTotal:  reconcileFilesTotal,
		citationTokensTotal:  citationTokensTotal,
		answerConfidence:     answerConfidence,
		answerLatency:        answerLatency,
		highlightTargetTotal: highlightTargetTotal,
	}
}

func (m *ClientMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ClientMetrics) RecordRequest(service, operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(service, operation, outcome).Inc()
	m.requestDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

func (m *ClientMetrics) RequestStarted() func() {
	if m == nil {
		return func() {}
	}
	m.requestInFlight.Inc()
	return m.requestInFlight.Dec
}

func (m *ClientMetrics) RecordReconcileOutcome(service, outcome string, count int) {
	if m == nil || count == 0 {
		return
	}
	m.reconcileFilesTotal.WithLabelValues(service, outcome).Add(float64(count))
}

func (m *ClientMetrics) RecordCitationTokens(service string, parsed, malformed int) {
	if m == nil {
		return
	}
	if parsed > 0 {
		m.citationTokensTotal.WithLabelValues(service, "parsed").Add(float64(parsed))
	}
	if malformed > 0 {
		m.citationTokensTotal.WithLabelValues(service, "malformed").Add(float64(malformed))
	}
}

func (m *ClientMetrics) RecordAnswer(confidence float64, latency time.Duration) {
	if m == nil {
		return
	}
	m.answerConfidence.Observe(confidence)
	m.answerLatency.Observe(latency.Seconds())
}

func (m *ClientMetrics) RecordHighlight(service string, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.highlightTargetTotal.WithLabelValues(service, result).Inc()
}
