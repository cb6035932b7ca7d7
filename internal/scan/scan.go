package scan

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/grouper"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/thumbs"
)

// Scanner reconciles the catalog with what is actually on disk under the
// watched directories. A rescan walks every root, regroups, upserts the
// result, prunes rows for vanished files, and drops thumbnail cache entries
// that no longer correspond to anything.
type Scanner struct {
	store   *catalog.Store
	grouper *grouper.Grouper
	thumbs  *thumbs.Cache

	mu      sync.Mutex
	running bool
}

// New creates a Scanner. thumbs may be nil when the cache is disabled.
func New(store *catalog.Store, g *grouper.Grouper, cache *thumbs.Cache) *Scanner {
	return &Scanner{store: store, grouper: g, thumbs: cache}
}

// Rescan runs one full reconciliation pass. Concurrent calls coalesce: if a
// pass is already running the second call returns immediately.
func (s *Scanner) Rescan(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		logging.Debug("rescan already in progress, skipping")
		return nil
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	start := time.Now()

	dirs, err := s.store.LoadDirectories(ctx)
	if err != nil {
		return fmt.Errorf("rescan: %w", err)
	}
	if len(dirs) == 0 {
		logging.Debug("rescan: no watched directories")
		return nil
	}

	var all []catalog.MediaItem
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return err
		}
		refs, err := collectRefs(ctx, dir.Path)
		if err != nil {
			logging.Warn("rescan: skipping %s: %v", dir.Path, err)
			continue
		}
		items := s.grouper.Group(refs)
		for i := range items {
			items[i].DirectoryID = dir.ID
		}
		all = append(all, items...)
	}

	keep := make([]string, 0, len(all))
	for i := range all {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.store.UpsertItem(ctx, &all[i]); err != nil {
			logging.Error("rescan: failed to store %s: %v", all[i].OriginalURL, err)
			continue
		}
		keep = append(keep, all[i].OriginalURL)
	}

	if _, err := s.store.PruneMissing(ctx, keep); err != nil {
		logging.Error("rescan: prune failed: %v", err)
	}

	if s.thumbs != nil {
		snap := thumbs.SnapshotFromCatalog(all, dirs)
		if removed, err := s.thumbs.CleanupDangling(snap); err != nil {
			logging.Warn("rescan: thumbnail cleanup failed: %v", err)
		} else if removed > 0 {
			logging.Info("rescan: removed %d dangling thumbnails", removed)
		}
	}

	logging.Info("rescan complete: %d items across %d directories in %v",
		len(all), len(dirs), time.Since(start).Round(time.Millisecond))
	return nil
}

// Prewarm generates small thumbnails for everything currently cataloged.
func (s *Scanner) Prewarm(ctx context.Context) error {
	if s.thumbs == nil {
		return nil
	}
	items, err := s.store.AllItems(ctx)
	if err != nil {
		return fmt.Errorf("prewarm: %w", err)
	}
	s.thumbs.Prewarm(ctx, items, thumbs.SizeSmall)
	return nil
}

// collectRefs gathers media file references under root, skipping hidden
// entries.
func collectRefs(ctx context.Context, root string) ([]grouper.FileRef, error) {
	var refs []grouper.FileRef
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("rescan walk error at %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || !mediatypes.IsMediaFile(strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logging.Warn("rescan stat failed for %s: %v", path, err)
			return nil
		}
		refs = append(refs, grouper.FileRef{Path: path, ModTime: info.ModTime()})
		return nil
	})
	return refs, err
}
