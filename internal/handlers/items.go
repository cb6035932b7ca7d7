package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"media-catalog/internal/catalog"
	"media-catalog/internal/logging"
	"media-catalog/internal/mediatypes"
)

// ListItems returns every cataloged item with metadata.
func (h *Handlers) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.AllItems(r.Context())
	if err != nil {
		logging.Error("failed to list items: %v", err)
		writeJSONError(w, "failed to load catalog", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, items)
}

type syncStatusRequest struct {
	SyncStatus string `json:"syncStatus"`
}

// UpdateItemSync sets the sync status of a single item.
func (h *Handlers) UpdateItemSync(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSONError(w, "invalid item id", http.StatusBadRequest)
		return
	}

	var req syncStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if !mediatypes.ValidSyncStatus(req.SyncStatus) {
		writeJSONError(w, "unknown sync status", http.StatusBadRequest)
		return
	}
	status := mediatypes.SyncStatus(req.SyncStatus)

	if err := h.store.UpdateSyncStatus(r.Context(), id, status); err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			writeJSONError(w, "item not found", http.StatusNotFound)
			return
		}
		logging.Error("failed to update sync status for item %d: %v", id, err)
		writeJSONError(w, "failed to update item", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, "updated")
}
