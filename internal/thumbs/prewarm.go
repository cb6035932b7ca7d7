package thumbs

import (
	"context"
	"sync"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/workers"
)

// SourceFor returns the file and file type a thumbnail for item should be
// generated from. Live photos thumbnail through their still companion.
func SourceFor(item catalog.MediaItem) (string, mediatypes.FileType) {
	if item.Type == mediatypes.ItemTypeVideo {
		return item.OriginalURL, mediatypes.FileTypeVideo
	}
	return item.OriginalURL, mediatypes.FileTypeImage
}

// Prewarm generates thumbnails for every item on a bounded worker pool so a
// freshly opened catalog has warm grid thumbnails. Failures are logged and
// skipped; they stay uncached and will be retried on demand.
func (c *Cache) Prewarm(ctx context.Context, items []catalog.MediaItem, size SizeClass) {
	numWorkers := workers.ForMixed(8)
	logging.Info("prewarming %d thumbnails (%s) with %d workers", len(items), size, numWorkers)

	jobs := make(chan catalog.MediaItem)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for item := range jobs {
				source, fileType := SourceFor(item)
				if _, err := c.Get(ctx, source, fileType, size); err != nil {
					logging.Debug("prewarm skipped %s: %v", source, err)
				}
			}
		}()
	}

	for _, item := range items {
		select {
		case jobs <- item:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			return
		}
	}
	close(jobs)
	wg.Wait()
}
