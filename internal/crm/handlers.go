package crm

import (
	"encoding/json"
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"sally/internal/calendar"
	"sally/internal/logs"
	"sally/internal/middleware"
	"sally/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// writeErr maps service errors onto the API's status codes. Unexpected errors
// are logged with the request id and surfaced as a generic 500.
func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		models.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		models.WriteError(w, http.StatusNotFound, err.Error())
	default:
		logs.Logger.Errorf("crm: reqid=%s %v", middleware.GetRequestID(r), err)
		models.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// POST /api/opportunities
func (h *Handler) CreateOpportunity(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFrom(r)
	if !ok {
		models.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	o, err := h.svc.Create(r.Context(), ident, in)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, o)
}

// GET /api/opportunities
func (h *Handler) ListOpportunities(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, rows)
}

// GET /api/opportunities/{id}
func (h *Handler) GetOpportunity(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, d)
}

// PATCH /api/opportunities/{id}
// One request, three shapes: {"stage": ...} moves the kanban card,
// {"assigned_sa_id": ...} reassigns, anything else is a field edit.
func (h *Handler) PatchOpportunity(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if v, ok := raw["stage"]; ok && len(raw) == 1 {
		var stage string
		if err := json.Unmarshal(v, &stage); err != nil {
			models.WriteError(w, http.StatusBadRequest, "stage must be a string")
			return
		}
		o, err := h.svc.UpdateStage(r.Context(), id, stage)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		models.WriteJSON(w, http.StatusOK, o)
		return
	}

	if v, ok := raw["assigned_sa_id"]; ok && len(raw) == 1 {
		var sa string
		if err := json.Unmarshal(v, &sa); err != nil {
			models.WriteError(w, http.StatusBadRequest, "assigned_sa_id must be a string")
			return
		}
		o, err := h.svc.UpdateAssignment(r.Context(), id, sa)
		if err != nil {
			writeErr(w, r, err)
			return
		}
		models.WriteJSON(w, http.StatusOK, o)
		return
	}

	body, err := json.Marshal(raw)
	if err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	var patch FieldPatch
	if err := json.Unmarshal(body, &patch); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	o, err := h.svc.UpdateFields(r.Context(), id, patch)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, o)
}

type noteBody struct {
	Content string `json:"content"`
}

// POST /api/opportunities/{id}/notes
func (h *Handler) AddNote(w http.ResponseWriter, r *http.Request) {
	ident, ok := middleware.IdentityFrom(r)
	if !ok {
		models.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var in noteBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	n, err := h.svc.AddNote(r.Context(), mux.Vars(r)["id"], ident, in.Content)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, n.View())
}

// PATCH /api/notes/{noteId}
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var in noteBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	n, err := h.svc.UpdateNote(r.Context(), mux.Vars(r)["noteId"], in.Content)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, n.View())
}

// DELETE /api/notes/{noteId}
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteNote(r.Context(), mux.Vars(r)["noteId"]); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /api/opportunities/calendar?week=YYYY-MM-DD
// Proposed meeting slots for the dashboard calendar view. Deterministic per
// week so refreshes do not reshuffle the schedule.
func (h *Handler) WeekCalendar(w http.ResponseWriter, r *http.Request) {
	anchor := time.Now().UTC()
	if s := r.URL.Query().Get("week"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			models.WriteError(w, http.StatusBadRequest, "week must be YYYY-MM-DD")
			return
		}
		anchor = t
	}
	rows, err := h.svc.List(r.Context())
	if err != nil {
		writeErr(w, r, err)
		return
	}
	week := calendar.WeekStart(anchor)
	rng := rand.New(rand.NewSource(week.Unix()))
	events := calendar.WeekEvents(rows, week, rng)
	models.WriteJSON(w, http.StatusOK, events)
}
