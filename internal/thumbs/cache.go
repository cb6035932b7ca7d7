package thumbs

import (
	"bytes"
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"sync"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/metrics"
)

// ErrUnsupported is returned for sources that are neither images nor videos.
var ErrUnsupported = errors.New("unsupported source type")

const jpegQuality = 80

// Cache is a disk-backed, request-coalescing thumbnail cache. Concurrent
// requests for the same (source, size class) pair share one generation task;
// successful results persist on disk and survive restarts. Failed
// generations are never cached, so a retry after the source becomes readable
// succeeds.
type Cache struct {
	dir string

	mu       sync.Mutex
	inflight map[string]*generation
}

// generation tracks one in-flight thumbnail task. data and err are written
// before done is closed, then only read.
type generation struct {
	done chan struct{}
	data []byte
	err  error
}

// New creates a Cache persisting into dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail cache dir: %w", err)
	}
	logging.Debug("thumbnail cache dir: %s", dir)
	return &Cache{
		dir:      dir,
		inflight: make(map[string]*generation),
	}, nil
}

// Dir returns the on-disk cache directory.
func (c *Cache) Dir() string {
	return c.dir
}

// cacheKey derives the stable disk key for a (source, size class) pair.
func cacheKey(source string, size SizeClass) string {
	hash := md5.Sum([]byte(source + "|" + string(size)))
	return fmt.Sprintf("%x", hash)
}

// Get returns the thumbnail for source at the given size class, generating
// and persisting it on a miss. Live photos should be requested through their
// still-image companion. Safe for unbounded concurrent callers.
func (c *Cache) Get(ctx context.Context, source string, fileType mediatypes.FileType, size SizeClass) ([]byte, error) {
	key := cacheKey(source, size)
	cachePath := filepath.Join(c.dir, key+".jpg")

	// Warm path: no locking needed for a plain disk read.
	if data, err := os.ReadFile(cachePath); err == nil {
		metrics.ThumbnailRequestsTotal.WithLabelValues(string(size), "hit").Inc()
		logging.Debug("thumbnail cache hit: %s (%s)", source, size)
		return data, nil
	}

	c.mu.Lock()
	if g, ok := c.inflight[key]; ok {
		c.mu.Unlock()
		metrics.ThumbnailRequestsTotal.WithLabelValues(string(size), "coalesced").Inc()
		select {
		case <-g.done:
			return g.data, g.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	// Re-check the disk under the lock: a generation may have completed
	// between the fast-path read and acquiring the mutex.
	if data, err := os.ReadFile(cachePath); err == nil {
		c.mu.Unlock()
		metrics.ThumbnailRequestsTotal.WithLabelValues(string(size), "hit").Inc()
		return data, nil
	}

	g := &generation{done: make(chan struct{})}
	c.inflight[key] = g
	c.mu.Unlock()

	g.data, g.err = c.generate(ctx, source, fileType, size, key, cachePath)
	close(g.done)

	c.mu.Lock()
	delete(c.inflight, key)
	c.mu.Unlock()

	result := "miss"
	if g.err != nil {
		result = "error"
	}
	metrics.ThumbnailRequestsTotal.WithLabelValues(string(size), result).Inc()

	return g.data, g.err
}

// generate produces, encodes, and persists one thumbnail. Failures leave no
// trace on disk.
func (c *Cache) generate(ctx context.Context, source string, fileType mediatypes.FileType, size SizeClass, key, cachePath string) ([]byte, error) {
	if _, err := os.Stat(source); err != nil {
		return nil, fmt.Errorf("source not accessible: %w", err)
	}

	start := time.Now()

	var img image.Image
	var err error
	switch fileType {
	case mediatypes.FileTypeImage:
		img, err = c.generateImage(source, size)
		metrics.ThumbnailGenerationDuration.WithLabelValues("image").Observe(time.Since(start).Seconds())
	case mediatypes.FileTypeVideo:
		img, err = c.generateVideoFrame(ctx, source, size)
		metrics.ThumbnailGenerationDuration.WithLabelValues("video").Observe(time.Since(start).Seconds())
	default:
		return nil, ErrUnsupported
	}
	if err != nil {
		return nil, fmt.Errorf("thumbnail generation failed for %s: %w", source, err)
	}
	if img == nil {
		return nil, fmt.Errorf("thumbnail generation returned nil image for %s", source)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}

	c.persist(key, cachePath, source, buf.Bytes())
	return buf.Bytes(), nil
}

// persist writes the thumbnail and its provenance sidecar. The thumbnail is
// written via temp file + rename so a crash never leaves a truncated entry.
// Persistence failures are logged, not returned: the caller still has the
// bytes.
func (c *Cache) persist(key, cachePath, source string, data []byte) {
	tmp := cachePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		logging.Warn("failed to write thumbnail %s: %v", cachePath, err)
		return
	}
	if err := os.Rename(tmp, cachePath); err != nil {
		logging.Warn("failed to finalize thumbnail %s: %v", cachePath, err)
		if rmErr := os.Remove(tmp); rmErr != nil {
			logging.Debug("failed to remove temp thumbnail %s: %v", tmp, rmErr)
		}
		return
	}

	// The sidecar records which source produced this entry so cleanup can
	// prove orphanhood later.
	srcPath := filepath.Join(c.dir, key+".src")
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		logging.Warn("failed to write thumbnail sidecar %s: %v", srcPath, err)
	}

	logging.Debug("thumbnail cached: %s", cachePath)
}
