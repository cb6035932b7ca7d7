package handlers

import (
	"sync"
	"time"

	"media-catalog/internal/bookmark"
	"media-catalog/internal/catalog"
	"media-catalog/internal/importer"
	"media-catalog/internal/scan"
	"media-catalog/internal/startup"
	"media-catalog/internal/thumbs"
)

type Handlers struct {
	store     *catalog.Store
	thumbs    *thumbs.Cache
	importer  *importer.Orchestrator
	scanner   *scan.Scanner
	bookmarks bookmark.Provider
	config    *startup.Config
	startTime time.Time

	// previewRoots holds source directories that passed preview validation,
	// so their thumbnails stay fetchable while an import is being staged.
	previewMu    sync.Mutex
	previewRoots map[string]time.Time
}

func New(store *catalog.Store, cache *thumbs.Cache, orch *importer.Orchestrator, scanner *scan.Scanner, bookmarks bookmark.Provider, config *startup.Config) *Handlers {
	return &Handlers{
		store:        store,
		thumbs:       cache,
		importer:     orch,
		scanner:      scanner,
		bookmarks:    bookmarks,
		config:       config,
		startTime:    time.Now(),
		previewRoots: make(map[string]time.Time),
	}
}
