package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/mentorship-api/internal/models"
)

// MetricsService owns the Prometheus registry. All methods are safe on a nil
// receiver so callers may run without instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Histogram
	cacheWrite      prometheus.Histogram
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	requests        *prometheus.CounterVec
	queries         *prometheus.CounterVec
	exports         *prometheus.CounterVec
	jobRuns         *prometheus.CounterVec
	subscribers     prometheus.Gauge

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	dbQueryCount         uint64
	dbQueryDurationTotal uint64
	subscriberCount      int64
}

// NewMetricsService registers the HTTP, cache, database and domain collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()
	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		cacheLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_latency_seconds",
			Help:    "Latency of cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency of cache writes",
			Buckets: prometheus.DefBuckets,
		}),
		cacheHitRatio: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cache_hit_ratio",
			Help: "Ratio of cache hits to total cache lookups",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total cache hits",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total cache misses",
		}),
		dbQueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "db_query_duration_seconds",
			Help:    "Duration of instrumented database queries",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentorship_requests_total",
			Help: "Mentorship request transitions by resulting status",
		}, []string{"status"}),
		queries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mentee_queries_total",
			Help: "Mentee query events",
		}, []string{"event"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "export_jobs_total",
			Help: "Roster export jobs by final status",
		}, []string{"status"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scheduled_job_runs_total",
			Help: "Scheduled job executions by job and outcome",
		}, []string{"job", "outcome"}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_subscribers",
			Help: "Open notification stream subscriptions",
		}),
	}

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite, m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.dbQueryDuration,
		m.requests, m.queries, m.exports, m.jobRuns, m.subscribers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
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
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records a cache lookup and refreshes the hit ratio.
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
	if total := hits + atomic.LoadUint64(&m.cacheMissCount); total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records timing for a labelled query.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
	atomic.AddUint64(&m.dbQueryDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordRequestTransition counts a request entering the given status.
func (m *MetricsService) RecordRequestTransition(status models.RequestStatus) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(string(status)).Inc()
}

// RecordQueryEvent counts query activity such as created, replied or viewed.
func (m *MetricsService) RecordQueryEvent(event string) {
	if m == nil {
		return
	}
	m.queries.WithLabelValues(event).Inc()
}

// RecordExport counts an export job reaching a final status.
func (m *MetricsService) RecordExport(status models.ExportStatus) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(string(status)).Inc()
}

// RecordJobRun counts a scheduled job execution.
func (m *MetricsService) RecordJobRun(job string, err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// AddSubscribers adjusts the open stream gauge by delta.
func (m *MetricsService) AddSubscribers(delta int) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.subscriberCount, int64(delta))
	m.subscribers.Add(float64(delta))
}

// Snapshot returns aggregated counters for the system metrics endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	dbCount := atomic.LoadUint64(&m.dbQueryCount)

	snapshot := models.SystemMetrics{
		CacheHits:           hits,
		CacheMisses:         misses,
		RequestsTotal:       requests,
		DBQueryCount:        dbCount,
		RealtimeSubscribers: int(atomic.LoadInt64(&m.subscriberCount)),
		Goroutines:          runtime.NumGoroutine(),
		GeneratedAt:         time.Now().UTC(),
	}
	if total := hits + misses; total > 0 {
		snapshot.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snapshot.AverageRequestDurationMs = float64(atomic.LoadUint64(&m.requestDurationTotal)) / float64(requests) / float64(time.Millisecond)
	}
	if dbCount > 0 {
		snapshot.AverageDBQueryDurationMs = float64(atomic.LoadUint64(&m.dbQueryDurationTotal)) / float64(dbCount) / float64(time.Millisecond)
	}
	return snapshot
}
