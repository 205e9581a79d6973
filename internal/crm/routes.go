package crm

import (
	"net/http"

	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, h *Handler) {
	// fixed path first so {id} does not swallow it
	r.HandleFunc("/opportunities/calendar", h.WeekCalendar).Methods(http.MethodGet)

	r.HandleFunc("/opportunities", h.CreateOpportunity).Methods(http.MethodPost)
	r.HandleFunc("/opportunities", h.ListOpportunities).Methods(http.MethodGet)
	r.HandleFunc("/opportunities/{id}", h.GetOpportunity).Methods(http.MethodGet)
	r.HandleFunc("/opportunities/{id}", h.PatchOpportunity).Methods(http.MethodPatch)

	r.HandleFunc("/opportunities/{id}/notes", h.AddNote).Methods(http.MethodPost)
	r.HandleFunc("/notes/{noteId}", h.UpdateNote).Methods(http.MethodPatch)
	r.HandleFunc("/notes/{noteId}", h.DeleteNote).Methods(http.MethodDelete)
}
