package handlers

import "github.com/gorilla/mux"

// Register wires every handler onto the router.
func (h *Handlers) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods("GET")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/items", h.ListItems).Methods("GET")
	api.HandleFunc("/items/{id}/sync", h.UpdateItemSync).Methods("PUT")
	api.HandleFunc("/directories", h.ListDirectories).Methods("GET")
	api.HandleFunc("/directories", h.SetDirectories).Methods("PUT")
	api.HandleFunc("/thumbnail", h.GetThumbnail).Methods("GET")
	api.HandleFunc("/media", h.GetMedia).Methods("GET")
	api.HandleFunc("/import/preview", h.PreviewImport).Methods("POST")
	api.HandleFunc("/import", h.RunImport).Methods("POST")
}
