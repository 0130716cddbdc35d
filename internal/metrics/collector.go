package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector holds the Prometheus instruments for the cache and batch paths.
type Collector struct {
	// Cache metrics
	cacheHits     *prometheus.CounterVec
	cacheMisses   *prometheus.CounterVec
	cacheRemovals *prometheus.CounterVec
	cacheSize     *prometheus.GaugeVec

	// Batch metrics
	batchesTotal      prometheus.Counter
	batchDuration     prometheus.Histogram
	batchItemsTotal   *prometheus.CounterVec
	batchItemDuration *prometheus.HistogramVec

	logger *zap.Logger
}

// NewCollector creates a collector with all instruments registered under the
// given namespace.
func NewCollector(namespace string, logger *zap.Logger) *Collector {
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.cacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	c.cacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	c.cacheRemovals = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_removals_total",
			Help:      "Total number of cache entries removed",
		},
		[]string{"cache_type", "reason"}, // reason: expired, evicted, deleted
	)

	c.cacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cache_size_bytes",
			Help:      "Current total size of cached blobs in bytes",
		},
		[]string{"cache_type"},
	)

	c.batchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Total number of batches processed",
		},
	)

	c.batchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall-clock duration of whole batches in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
	)

	c.batchItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_items_total",
			Help:      "Total number of batch items processed",
		},
		[]string{"status"}, // status: success, failure
	)

	c.batchItemDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_item_duration_seconds",
			Help:      "Per-item processing duration in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"status"},
	)

	return c
}

// RecordCacheHit records a cache hit.
func (c *Collector) RecordCacheHit(cacheType string) {
	c.cacheHits.WithLabelValues(cacheType).Inc()
}

// RecordCacheMiss records a cache miss.
func (c *Collector) RecordCacheMiss(cacheType string) {
	c.cacheMisses.WithLabelValues(cacheType).Inc()
}

// RecordCacheRemoval records the removal of a cache entry with the cause
// (expired, evicted, deleted).
func (c *Collector) RecordCacheRemoval(cacheType, reason string) {
	c.cacheRemovals.WithLabelValues(cacheType, reason).Inc()
}

// SetCacheSize records the current total blob size of a cache.
func (c *Collector) SetCacheSize(cacheType string, bytes int64) {
	c.cacheSize.WithLabelValues(cacheType).Set(float64(bytes))
}

// RecordBatch records a completed batch and its duration.
func (c *Collector) RecordBatch(duration time.Duration) {
	c.batchesTotal.Inc()
	c.batchDuration.Observe(duration.Seconds())
}

// RecordBatchItem records one processed item with its outcome and duration.
func (c *Collector) RecordBatchItem(success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.batchItemsTotal.WithLabelValues(status).Inc()
	c.batchItemDuration.WithLabelValues(status).Observe(duration.Seconds())
}
