package handlers

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
	"media-catalog/internal/thumbs"
)

// GetThumbnail serves a cached thumbnail for a media file. The path query
// parameter must resolve inside a watched directory; anything else is
// rejected so the endpoint cannot be used to read arbitrary files.
func (h *Handlers) GetThumbnail(w http.ResponseWriter, r *http.Request) {
	if h.thumbs == nil {
		writeJSONError(w, "thumbnails disabled", http.StatusServiceUnavailable)
		return
	}

	rawPath := r.URL.Query().Get("path")
	if rawPath == "" {
		writeJSONError(w, "missing path parameter", http.StatusBadRequest)
		return
	}
	size := thumbs.ParseSizeClass(r.URL.Query().Get("size"))

	path, err := filepath.Abs(rawPath)
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	allowed, err := h.pathInsideWatchedRoot(r, path)
	if err != nil {
		logging.Error("failed to validate thumbnail path: %v", err)
		writeJSONError(w, "failed to validate path", http.StatusInternalServerError)
		return
	}
	if !allowed && !h.insidePreviewRoot(path) {
		writeJSONError(w, "path outside watched directories", http.StatusForbidden)
		return
	}

	fileType := mediatypes.GetFileType(strings.ToLower(filepath.Ext(path)))
	data, err := h.thumbs.Get(r.Context(), path, fileType, size)
	if err != nil {
		switch {
		case errors.Is(err, thumbs.ErrUnsupported):
			writeJSONError(w, "unsupported media type", http.StatusUnsupportedMediaType)
		case errors.Is(err, os.ErrNotExist):
			writeJSONError(w, "media file not found", http.StatusNotFound)
		default:
			logging.Error("thumbnail generation failed for %s: %v", path, err)
			writeJSONError(w, "thumbnail generation failed", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := w.Write(data); err != nil {
		logging.Debug("failed to write thumbnail response: %v", err)
	}
}

// pathInsideWatchedRoot reports whether path is under one of the stored
// directory roots.
func (h *Handlers) pathInsideWatchedRoot(r *http.Request, path string) (bool, error) {
	dirs, err := h.store.LoadDirectories(r.Context())
	if err != nil {
		return false, err
	}
	for _, dir := range dirs {
		if underRoot(path, dir.Path) {
			return true, nil
		}
	}
	return false, nil
}

// previewRootTTL bounds how long a previewed source directory stays
// fetchable after its last preview.
const previewRootTTL = time.Hour

// rememberPreviewRoot records a validated preview source and expires stale
// entries while it holds the lock.
func (h *Handlers) rememberPreviewRoot(dir string) {
	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	for root, seen := range h.previewRoots {
		if time.Since(seen) > previewRootTTL {
			delete(h.previewRoots, root)
		}
	}
	h.previewRoots[dir] = time.Now()
}

// insidePreviewRoot reports whether path is under a recently previewed
// source directory.
func (h *Handlers) insidePreviewRoot(path string) bool {
	h.previewMu.Lock()
	defer h.previewMu.Unlock()
	for root, seen := range h.previewRoots {
		if time.Since(seen) > previewRootTTL {
			continue
		}
		if underRoot(path, root) {
			return true
		}
	}
	return false
}

func underRoot(path, root string) bool {
	if !strings.HasSuffix(root, string(filepath.Separator)) {
		root += string(filepath.Separator)
	}
	return strings.HasPrefix(path, root)
}
