package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"media-catalog/internal/bookmark"
	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/grouper"
	"media-catalog/internal/handlers"
	"media-catalog/internal/importer"
	"media-catalog/internal/logging"
	"media-catalog/internal/metadata"
	"media-catalog/internal/metrics"
	"media-catalog/internal/middleware"
	"media-catalog/internal/scan"
	"media-catalog/internal/startup"
	"media-catalog/internal/thumbs"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	startTime := time.Now()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	if config.MetricsEnabled {
		metrics.InitializeMetrics()
	}

	// Open catalog store
	storeStart := time.Now()
	store, err := catalog.Open(context.Background(), config.DatabasePath)
	if err != nil {
		logging.Fatal("Failed to open catalog: %v", err)
	}
	defer store.Close()

	itemCount, err := store.CountItems(context.Background())
	if err != nil {
		logging.Warn("failed to count catalog items: %v", err)
	}
	startup.LogCatalogInit(time.Since(storeStart), itemCount)

	// Thumbnail cache
	startup.LogThumbnailInit(config.ThumbnailsEnabled)
	var cache *thumbs.Cache
	if config.ThumbnailsEnabled {
		cache, err = thumbs.New(config.ThumbnailDir)
		if err != nil {
			logging.Fatal("Failed to create thumbnail cache: %v", err)
		}
		thumbs.InitVips()
		defer thumbs.ShutdownVips()
	}

	// Core services
	bookmarks := bookmark.FileProvider{}
	g := grouper.New(metadata.NewExtractor())
	orch := importer.New(g, cache)
	scanner := scan.New(store, g, cache)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Validate stored directory grants, then reconcile the catalog with what
	// is on disk and prewarm small thumbnails.
	go func() {
		dirs, err := store.LoadDirectories(rootCtx)
		if err != nil {
			logging.Error("failed to load directories: %v", err)
			return
		}
		for _, dir := range dirs {
			if len(dir.Bookmark) == 0 {
				continue
			}
			if _, err := bookmarks.Resolve(dir.Bookmark); err != nil {
				logging.Warn("directory %s is not accessible: %v", dir.Path, err)
			}
		}
		if err := scanner.Rescan(rootCtx); err != nil && rootCtx.Err() == nil {
			logging.Error("initial rescan failed: %v", err)
		}
		if err := scanner.Prewarm(rootCtx); err != nil && rootCtx.Err() == nil {
			logging.Warn("thumbnail prewarm failed: %v", err)
		}
	}()

	// Directory watcher: changed roots trigger a rescan after events settle.
	if config.WatcherEnabled {
		go runWatcher(rootCtx, store, scanner, config)
	}

	// Periodic reconciliation catches changes the watcher missed.
	go func() {
		ticker := time.NewTicker(config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := scanner.Rescan(rootCtx); err != nil && rootCtx.Err() == nil {
					logging.Error("periodic rescan failed: %v", err)
				}
			case <-rootCtx.Done():
				return
			}
		}
	}()

	// HTTP API
	h := handlers.New(store, cache, orch, scanner, bookmarks, config)
	router := mux.NewRouter()
	h.Register(router)
	startup.LogHTTPRoutes(router, config.LogHealthChecks)

	var handler http.Handler = router
	if config.MetricsEnabled {
		handler = middleware.Metrics()(handler)
	}
	handler = middleware.Logging(config.LogHealthChecks)(handler)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Metrics listener on its own port
	var metricsSrv *http.Server
	if config.MetricsEnabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsSrv = &http.Server{
			Addr:        ":" + config.MetricsPort,
			Handler:     metricsMux,
			ReadTimeout: 15 * time.Second,
		}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != http.ErrServerClosed {
				logging.Error("Metrics server error: %v", err)
			}
		}()
	}

	go handleShutdown(srv, metricsSrv, rootCancel)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsPort:     config.MetricsPort,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

// runWatcher keeps a watcher alive over the roots stored at startup. When
// no roots exist yet it polls until some appear. A changed root set takes
// effect after the next watcher restart; the periodic rescan covers the gap.
func runWatcher(ctx context.Context, store *catalog.Store, scanner *scan.Scanner, config *startup.Config) {
	for ctx.Err() == nil {
		dirs, err := store.LoadDirectories(ctx)
		if err != nil {
			logging.Error("watcher: failed to load directories: %v", err)
			return
		}
		if len(dirs) == 0 {
			select {
			case <-time.After(30 * time.Second):
				continue
			case <-ctx.Done():
				return
			}
		}

		roots := make([]string, 0, len(dirs))
		for _, d := range dirs {
			roots = append(roots, d.Path)
		}
		startup.LogWatcherInit(len(roots), config.WatchDebounce)

		w := filesystem.NewWatcher(roots, config.WatchDebounce, func() {
			if err := scanner.Rescan(ctx); err != nil && ctx.Err() == nil {
				logging.Error("watcher-triggered rescan failed: %v", err)
			}
		})
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			logging.Error("watcher stopped: %v", err)
			select {
			case <-time.After(10 * time.Second):
			case <-ctx.Done():
				return
			}
		}
	}
}

func handleShutdown(srv, metricsSrv *http.Server, cancelBackground context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	startup.LogShutdownStep("Stopping background workers")
	cancelBackground()
	startup.LogShutdownStepComplete("Background workers stopped")

	if metricsSrv != nil {
		startup.LogShutdownStep("Shutting down metrics server")
		if err := metricsSrv.Shutdown(ctx); err != nil {
			logging.Warn("Metrics server shutdown error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Metrics server stopped")
		}
	}

	startup.LogShutdownStep("Shutting down HTTP server")
	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	startup.LogShutdownComplete()
}
