// Package metrics defines the Prometheus collectors exported by the media
// catalog: catalog store operations, thumbnail cache activity, import runs,
// and filesystem retry behavior.
//
// All collectors are registered with the default registry via promauto at
// package load. Call InitializeMetrics once at startup to pre-populate label
// combinations so every series appears from the first scrape.
package metrics
