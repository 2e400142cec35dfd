package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache, admission and scoring paths.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	checkInVerdicts   *prometheus.CounterVec
	checkInDuration   prometheus.Observer
	engagementCompute prometheus.Observer
	engagementFailed  prometheus.Counter
	notificationsSent *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	checkInVerdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkin_verdicts_total",
		Help: "Check-in verdicts by outcome and denial code",
	}, []string{"outcome", "code"})

	checkInDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkin_duration_seconds",
		Help:    "End-to-end duration of one admission evaluation",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})

	engagementCompute := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "engagement_compute_seconds",
		Help:    "Duration of a roster engagement computation",
		Buckets: prometheus.DefBuckets,
	})

	engagementFailed := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engagement_client_failures_total",
		Help: "Clients dropped from an engagement computation because a signal failed",
	})

	notificationsSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "staff_notifications_total",
		Help: "Staff notifications by delivery channel and result",
	}, []string{"channel", "result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		checkInVerdicts, checkInDuration, engagementCompute, engagementFailed, notificationsSent, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:          registry,
		handler:           handler,
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		checkInVerdicts:   checkInVerdicts,
		checkInDuration:   checkInDuration,
		engagementCompute: engagementCompute,
		engagementFailed:  engagementFailed,
		notificationsSent: notificationsSent,
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveCheckIn records one verdict and how long the pipeline took to reach it.
func (m *MetricsService) ObserveCheckIn(success bool, code string, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "denied"
	if success {
		outcome = "admitted"
		code = "none"
	}
	m.checkInVerdicts.WithLabelValues(outcome, code).Inc()
	m.checkInDuration.Observe(duration.Seconds())
}

// ObserveEngagement records a roster computation and the number of clients it dropped.
func (m *MetricsService) ObserveEngagement(duration time.Duration, failures int) {
	if m == nil {
		return
	}
	m.engagementCompute.Observe(duration.Seconds())
	if failures > 0 {
		m.engagementFailed.Add(float64(failures))
	}
}

// RecordNotification counts a staff alert delivery attempt.
func (m *MetricsService) RecordNotification(channel string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notificationsSent.WithLabelValues(channel, result).Inc()
}
