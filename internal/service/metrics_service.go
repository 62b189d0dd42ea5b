package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation on a private registry.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	generationDuration *prometheus.HistogramVec
	generatedTotal     *prometheus.CounterVec
	generationFailures *prometheus.CounterVec
	documentsRendered  *prometheus.CounterVec
}

// NewMetricsService registers core and bulletin collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	generationDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bulletin_generation_duration_seconds",
		Help:    "Duration of bulletin generation runs",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{"scope"})

	generatedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletins_generated_total",
		Help: "Total bulletins written by generation runs",
	}, []string{"scope"})

	generationFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_generation_failures_total",
		Help: "Generation runs that stopped with an error, by error code",
	}, []string{"code"})

	documentsRendered := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bulletin_documents_rendered_total",
		Help: "Bulletin documents rendered, by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses, dbQueryDuration,
		generationDuration, generatedTotal, generationFailures, documentsRendered, goroutines)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		generationDuration: generationDuration,
		generatedTotal:     generatedTotal,
		generationFailures: generationFailures,
		documentsRendered:  documentsRendered,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database operation timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveGeneration records a successful generation run of the given scope
// ("class" or "student") that wrote count bulletins.
func (m *MetricsService) ObserveGeneration(scope string, count int, duration time.Duration) {
	if m == nil {
		return
	}
	m.generationDuration.WithLabelValues(scope).Observe(duration.Seconds())
	m.generatedTotal.WithLabelValues(scope).Add(float64(count))
}

// RecordGenerationFailure counts a failed generation run.
func (m *MetricsService) RecordGenerationFailure(code string) {
	if m == nil {
		return
	}
	m.generationFailures.WithLabelValues(code).Inc()
}

// RecordRender counts a document render attempt.
func (m *MetricsService) RecordRender(success bool) {
	if m == nil {
		return
	}
	result := "success"
	if !success {
		result = "failure"
	}
	m.documentsRendered.WithLabelValues(result).Inc()
}

// TrackQueueDepth exports the backlog of a worker queue as a gauge labelled by
// queue name. Registering the same name twice is an error.
func (m *MetricsService) TrackQueueDepth(name string, depth func() int) error {
	if m == nil {
		return nil
	}
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name:        "job_queue_depth",
		Help:        "Jobs waiting in an in-process worker queue",
		ConstLabels: prometheus.Labels{"queue": name},
	}, func() float64 {
		return float64(depth())
	})
	return m.registry.Register(gauge)
}
