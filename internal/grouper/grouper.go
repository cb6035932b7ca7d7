package grouper

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/workers"
)

// FileRef identifies one candidate file on disk.
type FileRef struct {
	Path    string
	ModTime time.Time
}

// MetadataSource produces a metadata record for a file. *metadata.Extractor
// satisfies this; tests substitute a stub. Extract is called from multiple
// goroutines and must be safe for concurrent use.
type MetadataSource interface {
	Extract(path string) *catalog.Metadata
}

// SlotComparator decides which of two qualifying candidates wins a slot
// (original, edited, or live companion). It returns true when a beats b.
// The default policy prefers the most recently modified file; it is exposed
// because that policy is a heuristic, not a verified ground truth.
type SlotComparator func(a, b FileRef) bool

// MostRecentlyModified is the default slot tie-break: newer modification
// time wins, with path as the deterministic final tiebreaker.
func MostRecentlyModified(a, b FileRef) bool {
	if !a.ModTime.Equal(b.ModTime) {
		return a.ModTime.After(b.ModTime)
	}
	return a.Path < b.Path
}

// Grouper reconstructs logical media items from loose files using filename
// heuristics: files in one directory sharing a grouping key (name minus
// edited-suffix and extension) form one item.
type Grouper struct {
	meta    MetadataSource
	slotWin SlotComparator
}

// New creates a Grouper. meta may be nil, in which case items carry no
// extracted metadata.
func New(meta MetadataSource) *Grouper {
	return &Grouper{
		meta:    meta,
		slotWin: MostRecentlyModified,
	}
}

// SetSlotComparator overrides the slot tie-break policy.
func (g *Grouper) SetSlotComparator(cmp SlotComparator) {
	if cmp != nil {
		g.slotWin = cmp
	}
}

// Group assembles media items from a flat list of file references. Files
// with unsupported extensions are ignored. The result is deterministic:
// independent of input ordering, sorted by original URL. No qualifying file
// is silently dropped; slot losers become standalone items.
func (g *Grouper) Group(files []FileRef) []catalog.MediaItem {
	type bucketKey struct {
		dir string
		key string
	}

	buckets := make(map[bucketKey][]FileRef)
	for _, f := range files {
		ext := strings.ToLower(filepath.Ext(f.Path))
		if !mediatypes.IsMediaFile(ext) {
			continue
		}
		bk := bucketKey{
			dir: filepath.Dir(f.Path),
			key: mediatypes.GroupKey(filepath.Base(f.Path)),
		}
		buckets[bk] = append(buckets[bk], f)
	}

	var items []catalog.MediaItem
	for bk, candidates := range buckets {
		// Sort candidates up front so assignment is order-independent.
		sort.Slice(candidates, func(i, j int) bool {
			return g.slotWin(candidates[i], candidates[j])
		})
		items = append(items, g.assemble(candidates)...)
		logging.Debug("grouped %d file(s) under key %q in %s", len(candidates), bk.key, bk.dir)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].OriginalURL < items[j].OriginalURL
	})

	if g.meta != nil {
		// Extraction decodes EXIF per item, so spread it over a CPU-sized
		// pool. Workers write disjoint indices.
		numWorkers := workers.ForCPU(8)
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < numWorkers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					items[i].Metadata = g.meta.Extract(items[i].OriginalURL)
				}
			}()
		}
		for i := range items {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	return items
}

// assemble builds the items for one bucket. candidates are pre-sorted with
// slot winners first.
func (g *Grouper) assemble(candidates []FileRef) []catalog.MediaItem {
	var originals, edited, videos []FileRef
	for _, f := range candidates {
		base := filepath.Base(f.Path)
		ext := strings.ToLower(filepath.Ext(base))
		switch mediatypes.GetFileType(ext) {
		case mediatypes.FileTypeImage:
			if mediatypes.IsEditedVariant(base) {
				edited = append(edited, f)
			} else {
				originals = append(originals, f)
			}
		case mediatypes.FileTypeVideo:
			videos = append(videos, f)
		}
	}

	var items []catalog.MediaItem

	// No image sibling at all: every video stands alone.
	if len(originals) == 0 && len(edited) == 0 {
		for _, v := range videos {
			items = append(items, catalog.MediaItem{
				OriginalURL: v.Path,
				Type:        mediatypes.ItemTypeVideo,
				SyncStatus:  mediatypes.SyncNotSynced,
			})
		}
		return items
	}

	// An edited variant with no plain original is promoted to primary.
	if len(originals) == 0 {
		originals, edited = edited[:1], edited[1:]
	}

	primary := catalog.MediaItem{
		OriginalURL: originals[0].Path,
		Type:        mediatypes.ItemTypePhoto,
		SyncStatus:  mediatypes.SyncNotSynced,
	}
	if len(edited) > 0 {
		// Slot winner; the rest become standalone photos below.
		primary.EditedURL = edited[0].Path
	}
	if len(videos) > 0 {
		primary.LiveVideoURL = videos[0].Path
		primary.Type = mediatypes.ItemTypeLivePhoto
	}
	items = append(items, primary)

	// Slot losers are separate standalone items rather than silent drops.
	for _, f := range originals[1:] {
		items = append(items, catalog.MediaItem{
			OriginalURL: f.Path,
			Type:        mediatypes.ItemTypePhoto,
			SyncStatus:  mediatypes.SyncNotSynced,
		})
	}
	for _, f := range edited[1:] {
		items = append(items, catalog.MediaItem{
			OriginalURL: f.Path,
			Type:        mediatypes.ItemTypePhoto,
			SyncStatus:  mediatypes.SyncNotSynced,
		})
	}
	for _, f := range videos[1:] {
		items = append(items, catalog.MediaItem{
			OriginalURL: f.Path,
			Type:        mediatypes.ItemTypeVideo,
			SyncStatus:  mediatypes.SyncNotSynced,
		})
	}

	return items
}
