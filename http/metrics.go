package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lifeboat/ml"
	"lifeboat/predictor"
)

// Metrics owns its registry so that several servers can live in one process.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	predictionsTotal    *prometheus.CounterVec
	predictionErrors    *prometheus.CounterVec
	artifactChanges     prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeboat_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lifeboat_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"method", "path"},
		),
		predictionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeboat_predictions_total",
				Help: "Predictions served, by label",
			},
			[]string{"label"},
		),
		predictionErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lifeboat_prediction_errors_total",
				Help: "Failed predictions, by error kind",
			},
			[]string{"kind"},
		),
		artifactChanges: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "lifeboat_model_artifact_changes_total",
				Help: "Changes to the model artifact seen on disk since startup",
			},
		),
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveRequest(method, path string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePrediction(label ml.Label) {
	m.predictionsTotal.WithLabelValues(strconv.Itoa(int(label))).Inc()
}

func (m *Metrics) ObservePredictionError(kind predictor.Kind) {
	m.predictionErrors.WithLabelValues(string(kind)).Inc()
}

func (m *Metrics) ObserveArtifactChange() {
	m.artifactChanges.Inc()
}
