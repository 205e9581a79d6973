package portal

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"sally/internal/logs"
	"sally/internal/middleware"
	"sally/internal/models"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		models.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNotFound):
		models.WriteError(w, http.StatusNotFound, err.Error())
	default:
		logs.Logger.Errorf("portal: reqid=%s %v", middleware.GetRequestID(r), err)
		models.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

type issueBody struct {
	ExpiresInDays *int `json:"expires_in_days"`
}

// POST /api/opportunities/{id}/portal
func (h *Handler) Issue(w http.ResponseWriter, r *http.Request) {
	var in issueBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	p, err := h.svc.Issue(r.Context(), mux.Vars(r)["id"], in.ExpiresInDays)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, p)
}

// POST /api/opportunities/{id}/portal/reissue
func (h *Handler) Reissue(w http.ResponseWriter, r *http.Request) {
	var in issueBody
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	p, err := h.svc.Reissue(r.Context(), mux.Vars(r)["id"], in.ExpiresInDays)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, p)
}

// GET /api/opportunities/{id}/portal
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.ActiveFor(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeErr(w, r, err)
		return
	}
	if p == nil {
		models.WriteError(w, http.StatusNotFound, "no active portal")
		return
	}
	models.WriteJSON(w, http.StatusOK, p)
}

// POST /api/portals/{id}/deactivate
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Deactivate(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stageBody struct {
	Name          string `json:"name"`
	ArchitectNote string `json:"architect_note"`
}

// POST /api/opportunities/{id}/stages
func (h *Handler) AddStage(w http.ResponseWriter, r *http.Request) {
	var in stageBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, err := h.svc.AddStage(r.Context(), mux.Vars(r)["id"], in.Name, in.ArchitectNote)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusCreated, e)
}

// PATCH /api/stages/{id}
func (h *Handler) UpdateStage(w http.ResponseWriter, r *http.Request) {
	var in stageBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, err := h.svc.UpdateStageNote(r.Context(), mux.Vars(r)["id"], in.ArchitectNote)
	if err != nil {
		writeErr(w, r, err)
		return
	}
	models.WriteJSON(w, http.StatusOK, e)
}

// GET /portal/{token} is public. Every failure mode answers with the same
// generic 404 body and nothing from the error chain leaks out.
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	proj, err := h.svc.Resolve(r.Context(), mux.Vars(r)["token"])
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logs.Logger.Errorf("portal resolve: reqid=%s %v", middleware.GetRequestID(r), err)
		}
		models.WriteError(w, http.StatusNotFound, "Portal not found")
		return
	}
	models.WriteJSON(w, http.StatusOK, proj)
}

type respondBody struct {
	Response string `json:"response"`
	Status   string `json:"status"`
}

// POST /portal/{token}/stages/{id}/respond is public but token-gated.
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	var in respondBody
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	vars := mux.Vars(r)
	e, err := h.svc.Respond(r.Context(), vars["token"], vars["id"], in.Response, in.Status)
	if err != nil {
		switch {
		case errors.Is(err, ErrValidation):
			models.WriteError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrNotFound):
			models.WriteError(w, http.StatusNotFound, "Portal not found")
		default:
			logs.Logger.Errorf("portal respond: reqid=%s %v", middleware.GetRequestID(r), err)
			models.WriteError(w, http.StatusNotFound, "Portal not found")
		}
		return
	}
	models.WriteJSON(w, http.StatusOK, StageView{
		ID:               e.UUID,
		Name:             e.Name,
		ArchitectNote:    e.ArchitectNote,
		ProspectResponse: e.ProspectResponse,
		Status:           e.Status,
	})
}
