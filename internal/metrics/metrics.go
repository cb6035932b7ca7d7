package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Catalog store metrics
var (
	CatalogQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_queries_total",
			Help: "Total number of catalog database operations",
		},
		[]string{"operation", "status"},
	)

	CatalogQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_query_duration_seconds",
			Help:    "Catalog database operation duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	CatalogItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "media_catalog_items",
			Help: "Number of media items currently in the catalog",
		},
	)
)

// Thumbnail cache metrics
var (
	ThumbnailRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_thumbnail_requests_total",
			Help: "Total number of thumbnail requests",
		},
		[]string{"size", "result"}, // result: "hit", "miss", "coalesced", "error"
	)

	ThumbnailGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "media_catalog_thumbnail_generation_duration_seconds",
			Help:    "Thumbnail generation duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"type"}, // "image", "video"
	)

	ThumbnailCleanupRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_thumbnail_cleanup_removed_total",
			Help: "Total number of dangling thumbnails removed by cleanup passes",
		},
	)
)

// Import metrics
var (
	ImportItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_import_items_total",
			Help: "Total number of items processed by import",
		},
		[]string{"status"}, // "copied", "skipped", "error"
	)

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "media_catalog_import_duration_seconds",
			Help:    "Duration of full import runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PreviewItemsFound = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "media_catalog_preview_items_found_total",
			Help: "Total number of items surfaced by preview runs",
		},
	)
)

// Filesystem retry metrics
var (
	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_fs_retry_attempts_total",
			Help: "Total number of filesystem operation retries",
		},
		[]string{"operation"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_fs_retry_failures_total",
			Help: "Total number of filesystem operations that failed after retries",
		},
		[]string{"operation"},
	)

	WatcherEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_watcher_events_total",
			Help: "Total number of filesystem change notifications received",
		},
		[]string{"op"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "media_catalog_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
)
