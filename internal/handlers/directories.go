package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
)

// DirectoryResponse is the wire form of a watched directory. The access
// token never leaves the process.
type DirectoryResponse struct {
	ID   int64  `json:"id"`
	Path string `json:"path"`
}

// ListDirectories returns the watched directory roots.
func (h *Handlers) ListDirectories(w http.ResponseWriter, r *http.Request) {
	dirs, err := h.store.LoadDirectories(r.Context())
	if err != nil {
		logging.Error("failed to load directories: %v", err)
		writeJSONError(w, "failed to load directories", http.StatusInternalServerError)
		return
	}

	response := make([]DirectoryResponse, 0, len(dirs))
	for _, d := range dirs {
		response = append(response, DirectoryResponse{ID: d.ID, Path: d.Path})
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}

type setDirectoriesRequest struct {
	Paths []string `json:"paths"`
}

// SetDirectories replaces the watched directory set. Each path must be
// grantable by the access provider; one bad path rejects the whole request
// so the stored set is never half-updated. A rescan kicks off in the
// background after a successful save.
func (h *Handlers) SetDirectories(w http.ResponseWriter, r *http.Request) {
	var req setDirectoriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	dirs := make([]catalog.Directory, 0, len(req.Paths))
	for _, path := range req.Paths {
		token, err := h.bookmarks.Grant(path)
		if err != nil {
			logging.Warn("rejecting directory %s: %v", path, err)
			writeJSONError(w, "cannot access directory: "+path, http.StatusBadRequest)
			return
		}
		resolved, err := h.bookmarks.Resolve(token)
		if err != nil {
			writeJSONError(w, "cannot access directory: "+path, http.StatusBadRequest)
			return
		}
		dirs = append(dirs, catalog.Directory{Path: resolved, Bookmark: token})
	}

	if err := h.store.SaveDirectories(r.Context(), dirs); err != nil {
		logging.Error("failed to save directories: %v", err)
		writeJSONError(w, "failed to save directories", http.StatusInternalServerError)
		return
	}

	if h.scanner != nil {
		// The request context dies with the response; the rescan outlives it.
		go func() {
			if err := h.scanner.Rescan(context.Background()); err != nil {
				logging.Warn("post-save rescan failed: %v", err)
			}
		}()
	}

	response := make([]DirectoryResponse, 0, len(dirs))
	for _, d := range dirs {
		response = append(response, DirectoryResponse{ID: d.ID, Path: d.Path})
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, response)
}
