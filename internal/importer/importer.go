package importer

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"media-catalog/internal/catalog"
	"media-catalog/internal/filesystem"
	"media-catalog/internal/grouper"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
	"media-catalog/internal/thumbs"
	"media-catalog/internal/workers"
)

// ProgressSink receives per-item import progress. Implementations must be
// fast; callbacks run on the import goroutine.
type ProgressSink interface {
	ItemStarted(item catalog.MediaItem)
	ItemCompleted(item catalog.MediaItem, err error)
}

// NopSink discards all progress events.
type NopSink struct{}

func (NopSink) ItemStarted(catalog.MediaItem)          {}
func (NopSink) ItemCompleted(catalog.MediaItem, error) {}

// Orchestrator discovers media in external directories and copies it into
// the managed library, sharded by capture date.
type Orchestrator struct {
	grouper *grouper.Grouper
	thumbs  *thumbs.Cache
	retry   filesystem.RetryConfig
}

// New creates an Orchestrator using g for grouping and cache for preview
// thumbnails.
func New(g *grouper.Grouper, cache *thumbs.Cache) *Orchestrator {
	return &Orchestrator{
		grouper: g,
		thumbs:  cache,
		retry:   filesystem.DefaultRetryConfig(),
	}
}

// Preview walks sourceDir, groups what it finds, and calls onFound for each
// item that yields a small thumbnail. Items whose thumbnail fails are left
// out of the preview but not out of a later import. Hidden files and
// directories are skipped.
func (o *Orchestrator) Preview(ctx context.Context, sourceDir string, onFound func(catalog.MediaItem)) error {
	var refs []grouper.FileRef

	err := filepath.WalkDir(sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logging.Warn("preview walk error at %s: %v", path, err)
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if strings.HasPrefix(d.Name(), ".") && path != sourceDir {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !mediatypes.IsMediaFile(strings.ToLower(filepath.Ext(d.Name()))) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			logging.Warn("preview stat failed for %s: %v", path, err)
			return nil
		}
		refs = append(refs, grouper.FileRef{Path: path, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return fmt.Errorf("preview of %s failed: %w", sourceDir, err)
	}

	items := o.grouper.Group(refs)
	logging.Info("preview found %d items in %s", len(items), sourceDir)

	// The thumbnail gate reads from the (often external, slow) source
	// volume, so run it on an I/O-sized pool. Emission stays in item order.
	numWorkers := workers.ForIO(8)
	passed := make([]bool, len(items))
	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				source, fileType := thumbs.SourceFor(items[i])
				if _, err := o.thumbs.Get(ctx, source, fileType, thumbs.SizeSmall); err != nil {
					logging.Warn("preview thumbnail failed for %s, excluding from preview: %v", source, err)
					continue
				}
				passed[i] = true
			}
		}()
	}

	for i := range items {
		select {
		case jobs <- i:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	for i, item := range items {
		if !passed[i] {
			continue
		}
		metrics.PreviewItemsFound.Inc()
		onFound(item)
	}
	return nil
}

// Import copies items into destDir, sharding by the best available capture
// date as YYYY/MM/DD. Each item is independent: a failed copy marks that
// item failed and the run continues. Returns early only when ctx is
// cancelled.
func (o *Orchestrator) Import(ctx context.Context, items []catalog.MediaItem, destDir string, sink ProgressSink) error {
	if sink == nil {
		sink = NopSink{}
	}
	start := time.Now()
	defer func() {
		metrics.ImportDuration.Observe(time.Since(start).Seconds())
	}()

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return err
		}

		sink.ItemStarted(item)
		copied, err := o.importItem(ctx, item, destDir)
		switch {
		case err != nil:
			logging.Error("import failed for %s: %v", item.OriginalURL, err)
			metrics.ImportItemsTotal.WithLabelValues("error").Inc()
		case copied == 0:
			metrics.ImportItemsTotal.WithLabelValues("skipped").Inc()
		default:
			metrics.ImportItemsTotal.WithLabelValues("copied").Inc()
		}
		sink.ItemCompleted(item, err)

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}

// importItem copies one item's files into its date shard. Returns the
// number of files actually copied; vanished sources count as zero, not as
// errors.
func (o *Orchestrator) importItem(ctx context.Context, item catalog.MediaItem, destDir string) (int, error) {
	shard, err := o.shardDir(item, destDir)
	if err != nil {
		return 0, err
	}

	sources := make([]string, 0, 3)
	for _, src := range []string{item.OriginalURL, item.EditedURL, item.LiveVideoURL} {
		if src != "" {
			sources = append(sources, src)
		}
	}

	copied := 0
	for _, src := range sources {
		dst := filepath.Join(shard, filepath.Base(src))
		n, err := o.copyFile(ctx, src, dst)
		if err != nil {
			return copied, err
		}
		copied += n
	}
	return copied, nil
}

// shardDir resolves and creates the YYYY/MM/DD destination directory for an
// item, keyed on its best available date.
func (o *Orchestrator) shardDir(item catalog.MediaItem, destDir string) (string, error) {
	date := item.Metadata.BestDate()
	if date.IsZero() {
		info, err := filesystem.StatWithRetry(item.OriginalURL, o.retry)
		if err != nil {
			return "", fmt.Errorf("no usable date for %s: %w", item.OriginalURL, err)
		}
		date = info.ModTime()
	}

	shard := filepath.Join(destDir,
		fmt.Sprintf("%04d", date.Year()),
		fmt.Sprintf("%02d", int(date.Month())),
		fmt.Sprintf("%02d", date.Day()))
	if err := os.MkdirAll(shard, 0o755); err != nil {
		return "", fmt.Errorf("failed to create destination %s: %w", shard, err)
	}
	return shard, nil
}

// copyFile copies src to dst atomically via a temp file and rename. Returns
// (1, nil) on copy, (0, nil) when the source vanished or the destination
// already exists. A cancelled or failed copy removes the temp file, so dst
// is never left truncated.
func (o *Orchestrator) copyFile(ctx context.Context, src, dst string) (int, error) {
	if _, err := os.Stat(dst); err == nil {
		logging.Debug("destination already exists, skipping: %s", dst)
		return 0, nil
	}

	in, err := filesystem.OpenWithRetry(src, o.retry)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("source vanished before copy, skipping: %s", src)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.Debug("failed to close %s: %v", src, err)
		}
	}()

	tmp := dst + ".partial"
	out, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if err := copyWithContext(ctx, out, in); err != nil {
		out.Close()
		if rmErr := os.Remove(tmp); rmErr != nil {
			logging.Warn("failed to remove partial file %s: %v", tmp, rmErr)
		}
		return 0, fmt.Errorf("copy of %s failed: %w", src, err)
	}
	if err := out.Sync(); err != nil {
		out.Close()
		os.Remove(tmp)
		return 0, fmt.Errorf("sync of %s failed: %w", tmp, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("close of %s failed: %w", tmp, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to finalize %s: %w", dst, err)
	}

	// Preserve the source timestamp so date-based tooling downstream agrees
	// with the shard.
	if info, err := in.Stat(); err == nil {
		if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
			logging.Debug("failed to set times on %s: %v", dst, err)
		}
	}

	logging.Debug("imported %s -> %s", src, dst)
	return 1, nil
}

// copyWithContext streams src to dst in chunks, checking for cancellation
// between chunks.
func copyWithContext(ctx context.Context, dst io.Writer, src io.Reader) error {
	buf := make([]byte, 256*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}
