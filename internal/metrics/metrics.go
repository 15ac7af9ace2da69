package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsNamespace       = "embedder"
	MetricsSubsystemHTTP   = "http"
	MetricsSubsystemModel  = "model"
	MetricsSubsystemCache  = "cache"
	MetricsSubsystemSystem = "system"
)

type Metrics interface {
	GetRegistry() *prometheus.Registry

	ObserveHTTPRequest(route, method, statusCode string, elapsed float64)
	ObserveEmbedDuration(transport string, elapsed float64)
	SetModelLoaded(loaded bool)
	IncrementCacheResult(result string)
}

type metrics struct {
	registry *prometheus.Registry

	startTime   prometheus.Gauge
	modelInfo   *prometheus.GaugeVec
	modelLoaded prometheus.Gauge

	httpTime      *prometheus.HistogramVec
	embedTime     *prometheus.HistogramVec
	cacheRequests *prometheus.CounterVec
}

// NewMetrics creates a collector set on a private registry. modelID and
// device are exported as labels of the model_info gauge.
func NewMetrics(modelID, device string) Metrics {
	m := &metrics{registry: prometheus.NewRegistry()}
	m.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{Namespace: MetricsNamespace}))
	m.registry.MustRegister(collectors.NewGoCollector())

	m.startTime = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemSystem,
		Name:      "start_timestamp_seconds",
		Help:      "The time the service started.",
	})
	m.startTime.SetToCurrentTime()
	m.registry.MustRegister(m.startTime)

	m.modelInfo = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemModel,
		Name:      "info",
		Help:      "The configured embedding model.",
	}, []string{"model", "device"})
	m.modelInfo.WithLabelValues(modelID, device).Set(1)
	m.registry.MustRegister(m.modelInfo)

	m.modelLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemModel,
		Name:      "loaded",
		Help:      "1 once the embedding model is ready.",
	})
	m.registry.MustRegister(m.modelLoaded)

	m.httpTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemHTTP,
		Name:      "request_duration_seconds",
		Help:      "Time to serve an HTTP request.",
	}, []string{"route", "method", "status_code"})
	m.registry.MustRegister(m.httpTime)

	m.embedTime = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemModel,
		Name:      "embed_duration_seconds",
		Help:      "Time spent encoding a single text.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"transport"})
	m.registry.MustRegister(m.embedTime)

	m.cacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Subsystem: MetricsSubsystemCache,
		Name:      "requests_total",
		Help:      "Embedding cache lookups by result.",
	}, []string{"result"})
	m.registry.MustRegister(m.cacheRequests)

	return m
}

func (m *metrics) GetRegistry() *prometheus.Registry {
	return m.registry
}

func (m *metrics) ObserveHTTPRequest(route, method, statusCode string, elapsed float64) {
	m.httpTime.With(prometheus.Labels{"route": route, "method": method, "status_code": statusCode}).Observe(elapsed)
}

func (m *metrics) ObserveEmbedDuration(transport string, elapsed float64) {
	m.embedTime.WithLabelValues(transport).Observe(elapsed)
}

func (m *metrics) SetModelLoaded(loaded bool) {
	if loaded {
		m.modelLoaded.Set(1)
		return
	}
	m.modelLoaded.Set(0)
}

func (m *metrics) IncrementCacheResult(result string) {
	m.cacheRequests.WithLabelValues(result).Inc()
}

// NewHandler exposes the registry in the Prometheus text format.
func NewHandler(m Metrics) http.Handler {
	return promhttp.HandlerFor(m.GetRegistry(), promhttp.HandlerOpts{})
}
