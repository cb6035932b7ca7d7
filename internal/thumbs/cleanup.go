package thumbs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/metrics"
)

// Snapshot is a point-in-time view of which sources the catalog knows about.
// A cached thumbnail is orphaned only when its source is neither a known
// item URL nor located under a watched directory root.
type Snapshot struct {
	sources map[string]struct{}
	roots   []string
}

// SnapshotFromCatalog builds a Snapshot from catalog items and watched
// directories. Every URL an item references (original, edited, live
// companion) counts as live.
func SnapshotFromCatalog(items []catalog.MediaItem, dirs []catalog.Directory) Snapshot {
	snap := Snapshot{sources: make(map[string]struct{}, len(items))}
	for _, item := range items {
		snap.sources[item.OriginalURL] = struct{}{}
		if item.EditedURL != "" {
			snap.sources[item.EditedURL] = struct{}{}
		}
		if item.LiveVideoURL != "" {
			snap.sources[item.LiveVideoURL] = struct{}{}
		}
	}
	for _, d := range dirs {
		root := d.Path
		if !strings.HasSuffix(root, string(filepath.Separator)) {
			root += string(filepath.Separator)
		}
		snap.roots = append(snap.roots, root)
	}
	return snap
}

// Contains reports whether source is known to the snapshot, directly or via
// a watched root.
func (s Snapshot) Contains(source string) bool {
	if _, ok := s.sources[source]; ok {
		return true
	}
	for _, root := range s.roots {
		if strings.HasPrefix(source, root) {
			return true
		}
	}
	return false
}

// CleanupDangling scans the persisted cache and removes entries whose
// recorded source is provably orphaned against the snapshot. Entries without
// a provenance sidecar are left alone: absence of proof is not proof of
// orphanhood. Returns the number of entries removed.
func (c *Cache) CleanupDangling(snap Snapshot) (int, error) {
	entries, err := filesystem.ReadDirWithRetry(c.dir, filesystem.DefaultRetryConfig())
	if err != nil {
		return 0, fmt.Errorf("failed to scan thumbnail cache: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".src") {
			continue
		}

		sidecarPath := filepath.Join(c.dir, entry.Name())
		sourceBytes, err := os.ReadFile(sidecarPath)
		if err != nil {
			logging.Warn("failed to read thumbnail sidecar %s: %v", sidecarPath, err)
			continue
		}
		source := string(sourceBytes)

		if snap.Contains(source) {
			continue
		}

		key := strings.TrimSuffix(entry.Name(), ".src")
		thumbPath := filepath.Join(c.dir, key+".jpg")

		if err := os.Remove(thumbPath); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove dangling thumbnail %s: %v", thumbPath, err)
			continue
		}
		if err := os.Remove(sidecarPath); err != nil {
			logging.Warn("failed to remove thumbnail sidecar %s: %v", sidecarPath, err)
		}

		logging.Debug("removed dangling thumbnail for %s", source)
		removed++
	}

	if removed > 0 {
		metrics.ThumbnailCleanupRemoved.Add(float64(removed))
		logging.Info("thumbnail cleanup removed %d dangling entries", removed)
	}
	return removed, nil
}
