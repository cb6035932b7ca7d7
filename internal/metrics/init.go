package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, op := range []string{"initialize_schema", "upsert_item", "all_items",
		"update_sync_status", "clear_all", "count_items", "prune_missing",
		"save_directories", "load_directories"} {
		CatalogQueryTotal.WithLabelValues(op, "success")
		CatalogQueryTotal.WithLabelValues(op, "error")
		CatalogQueryDuration.WithLabelValues(op)
	}

	for _, size := range []string{"small", "medium", "large"} {
		for _, result := range []string{"hit", "miss", "coalesced", "error"} {
			ThumbnailRequestsTotal.WithLabelValues(size, result)
		}
	}

	for _, t := range []string{"image", "video"} {
		ThumbnailGenerationDuration.WithLabelValues(t)
	}

	for _, status := range []string{"copied", "skipped", "error"} {
		ImportItemsTotal.WithLabelValues(status)
	}

	for _, op := range []string{"stat", "open", "readdir"} {
		FilesystemRetryAttempts.WithLabelValues(op)
		FilesystemRetryFailures.WithLabelValues(op)
	}

	for _, op := range []string{"create", "write", "remove", "rename", "chmod", "unknown"} {
		WatcherEventsTotal.WithLabelValues(op)
	}
}
