package insights

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
	gen *Generator
}

func NewHandler(gen *Generator) *Handler { return &Handler{gen: gen} }

func RegisterRoutes(r *mux.Router, h *Handler) {
	r.HandleFunc("/insights/sample-payload", h.SamplePayload).Methods(http.MethodPost)
}

type sampleRequest struct {
	MetricName  string `json:"metric_name"`
	Description string `json:"description"`
}

// POST /api/insights/sample-payload
func (h *Handler) SamplePayload(w http.ResponseWriter, r *http.Request) {
	var in sampleRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		models.WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if in.MetricName == "" {
		models.WriteError(w, http.StatusBadRequest, "metric_name required")
		return
	}
	payload, err := h.gen.SamplePayload(r.Context(), in.MetricName, in.Description)
	if err != nil {
		logs.Logger.Errorf("insights: reqid=%s %v", middleware.GetRequestID(r), err)
		if errors.Is(err, ErrUpstream) {
			models.WriteError(w, http.StatusBadGateway, "completion API unavailable")
			return
		}
		models.WriteError(w, http.StatusInternalServerError, "internal error")
		return
	}
	models.WriteJSON(w, http.StatusOK, map[string]json.RawMessage{"payload": payload})
}
