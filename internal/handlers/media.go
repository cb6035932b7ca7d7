package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"media-catalog/internal/filesystem"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// GetMedia streams an original media file with its proper MIME type. The
// same authorization as thumbnails applies: the path must sit under a
// watched directory or a recently previewed source. ServeContent handles
// range requests, which video playback depends on.
func (h *Handlers) GetMedia(w http.ResponseWriter, r *http.Request) {
	rawPath := r.URL.Query().Get("path")
	if rawPath == "" {
		writeJSONError(w, "missing path parameter", http.StatusBadRequest)
		return
	}

	path, err := filepath.Abs(rawPath)
	if err != nil {
		writeJSONError(w, "invalid path", http.StatusBadRequest)
		return
	}

	allowed, err := h.pathInsideWatchedRoot(r, path)
	if err != nil {
		logging.Error("failed to validate media path: %v", err)
		writeJSONError(w, "failed to validate path", http.StatusInternalServerError)
		return
	}
	if !allowed && !h.insidePreviewRoot(path) {
		writeJSONError(w, "path outside watched directories", http.StatusForbidden)
		return
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !mediatypes.IsMediaFile(ext) {
		writeJSONError(w, "unsupported media type", http.StatusUnsupportedMediaType)
		return
	}

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if os.IsNotExist(err) {
			writeJSONError(w, "media file not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to open media file %s: %v", path, err)
		writeJSONError(w, "failed to open media file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		logging.Error("failed to stat media file %s: %v", path, err)
		writeJSONError(w, "failed to read media file", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", mediatypes.GetMimeType(ext))
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}
