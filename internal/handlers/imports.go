package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
)

type previewRequest struct {
	SourceDir string `json:"sourceDir"`
}

// PreviewImport walks a source directory and returns the importable items
// found there, each already verified to render a thumbnail.
func (h *Handlers) PreviewImport(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SourceDir == "" {
		writeJSONError(w, "missing sourceDir", http.StatusBadRequest)
		return
	}
	sourceDir, err := filepath.Abs(req.SourceDir)
	if err != nil {
		writeJSONError(w, "invalid sourceDir", http.StatusBadRequest)
		return
	}
	if info, err := os.Stat(sourceDir); err != nil || !info.IsDir() {
		writeJSONError(w, "sourceDir is not a readable directory", http.StatusBadRequest)
		return
	}
	h.rememberPreviewRoot(sourceDir)

	items := []catalog.MediaItem{}
	err = h.importer.Preview(r.Context(), sourceDir, func(item catalog.MediaItem) {
		items = append(items, item)
	})
	if err != nil {
		logging.Error("preview of %s failed: %v", req.SourceDir, err)
		writeJSONError(w, "preview failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, items)
}

type importRequest struct {
	Items []catalog.MediaItem `json:"items"`
}

// ImportResult reports the outcome for one imported item.
type ImportResult struct {
	OriginalURL string `json:"originalUrl"`
	Error       string `json:"error,omitempty"`
}

// resultSink collects per-item outcomes for the response body.
type resultSink struct {
	results []ImportResult
}

func (s *resultSink) ItemStarted(catalog.MediaItem) {}

func (s *resultSink) ItemCompleted(item catalog.MediaItem, err error) {
	result := ImportResult{OriginalURL: item.OriginalURL}
	if err != nil {
		result.Error = err.Error()
	}
	s.results = append(s.results, result)
}

// RunImport copies the posted items into the managed catalog directory and
// returns one result per item. A background rescan picks up the new files
// afterwards.
func (h *Handlers) RunImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Items) == 0 {
		writeJSONError(w, "no items to import", http.StatusBadRequest)
		return
	}

	sink := &resultSink{}
	if err := h.importer.Import(r.Context(), req.Items, h.config.CatalogDir, sink); err != nil {
		logging.Warn("import interrupted: %v", err)
		writeJSONError(w, "import interrupted", http.StatusInternalServerError)
		return
	}

	if h.scanner != nil {
		go func() {
			if err := h.scanner.Rescan(context.Background()); err != nil {
				logging.Warn("post-import rescan failed: %v", err)
			}
		}()
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, sink.results)
}
