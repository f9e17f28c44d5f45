package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/VictorNunesAlves/PSO-Particle-Swarm-Optimization/internal/models"
)

// MetricsSnapshot is a JSON-friendly summary of the collectors.
type MetricsSnapshot struct {
	Runs             uint64  `json:"runs"`
	FailedRuns       uint64  `json:"failedRuns"`
	Generations      uint64  `json:"generations"`
	LastBestFitness  int64   `json:"lastBestFitness"`
	AvgRunMs         float64 `json:"avgRunMs"`
	Requests         uint64  `json:"requests"`
	AvgRequestMs     float64 `json:"avgRequestMs"`
	CacheHitRatio    float64 `json:"cacheHitRatio"`
	GoroutineCount   int     `json:"goroutines"`
	LastRunCompleted string  `json:"lastRunCompleted,omitempty"`
}

// MetricsService owns the Prometheus registry for the API and the optimiser.
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
	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	bestFitness     prometheus.Gauge
	generations     prometheus.Counter
	improvements    prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	runCount             uint64
	failedRunCount       uint64
	runDurationTotal     uint64
	generationCount      uint64
	lastBest             int64
	lastRunUnix          int64
}

// NewMetricsService registers the collectors on a private registry.
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
			Help:    "Latency for cache lookups",
			Buckets: prometheus.DefBuckets,
		}),
		cacheWrite: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cache_write_seconds",
			Help:    "Latency for cache set operations",
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
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "optimizer_runs_total",
			Help: "Optimisation runs by final status",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "optimizer_run_duration_seconds",
			Help:    "Wall time of a swarm run",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "optimizer_best_fitness",
			Help: "Best fitness of the most recent finished run",
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_generations_total",
			Help: "Swarm generations evaluated",
		}),
		improvements: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "optimizer_global_best_improvements_total",
			Help: "Generations that raised the global best",
		}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		m.requestDuration, m.requestTotal,
		m.cacheLatency, m.cacheWrite,
		m.cacheHitRatio, m.cacheHits, m.cacheMisses,
		m.runsTotal, m.runDuration, m.bestFitness, m.generations, m.improvements,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
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

// ObserveGeneration counts one swarm generation.
func (m *MetricsService) ObserveGeneration(improved bool) {
	if m == nil {
		return
	}
	m.generations.Inc()
	atomic.AddUint64(&m.generationCount, 1)
	if improved {
		m.improvements.Inc()
	}
}

// ObserveRun records the outcome of a run. bestFitness is ignored for
// failed runs.
func (m *MetricsService) ObserveRun(status models.RunStatus, bestFitness int, duration time.Duration) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(status)).Inc()
	if status == models.RunStatusFailed {
		atomic.AddUint64(&m.failedRunCount, 1)
		return
	}
	m.runDuration.Observe(duration.Seconds())
	m.bestFitness.Set(float64(bestFitness))
	atomic.AddUint64(&m.runCount, 1)
	atomic.AddUint64(&m.runDurationTotal, uint64(duration.Nanoseconds()))
	atomic.StoreInt64(&m.lastBest, int64(bestFitness))
	atomic.StoreInt64(&m.lastRunUnix, time.Now().Unix())
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	runs := atomic.LoadUint64(&m.runCount)
	runDuration := atomic.LoadUint64(&m.runDurationTotal)

	snap := MetricsSnapshot{
		Runs:            runs,
		FailedRuns:      atomic.LoadUint64(&m.failedRunCount),
		Generations:     atomic.LoadUint64(&m.generationCount),
		LastBestFitness: atomic.LoadInt64(&m.lastBest),
		Requests:        requests,
		GoroutineCount:  runtime.NumGoroutine(),
	}
	if total := hits + misses; total > 0 {
		snap.CacheHitRatio = float64(hits) / float64(total)
	}
	if requests > 0 {
		snap.AvgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}
	if runs > 0 {
		snap.AvgRunMs = float64(runDuration) / float64(runs) / float64(time.Millisecond)
	}
	if last := atomic.LoadInt64(&m.lastRunUnix); last > 0 {
		snap.LastRunCompleted = time.Unix(last, 0).UTC().Format(time.RFC3339)
	}
	return snap
}
