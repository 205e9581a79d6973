package portal

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes attaches the authenticated portal-management endpoints.
func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/opportunities/{id}/portal", h.Active).Methods(http.MethodGet)
	r.HandleFunc("/opportunities/{id}/portal", h.Issue).Methods(http.MethodPost)
	r.HandleFunc("/opportunities/{id}/portal/reissue", h.Reissue).Methods(http.MethodPost)
	r.HandleFunc("/portals/{id}/deactivate", h.Deactivate).Methods(http.MethodPost)

	r.HandleFunc("/opportunities/{id}/stages", h.AddStage).Methods(http.MethodPost)
	r.HandleFunc("/stages/{id}", h.UpdateStage).Methods(http.MethodPatch)
}

// RegisterPublicRoutes attaches the unauthenticated client-facing endpoints.
func RegisterPublicRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/portal/{token}", h.Resolve).Methods(http.MethodGet)
	r.HandleFunc("/portal/{token}/stages/{id}/respond", h.Respond).Methods(http.MethodPost)
}
