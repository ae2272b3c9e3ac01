package metadata

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oceanobs/seaportal/pkg/httpx"
)

// Handler serves the metadata and vocabulary API.
type Handler struct {
	service *Service
}

// NewHandler wires the metadata handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// HandleList returns the stations that hold data.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.service.ListPlatforms(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, platforms)
}

// HandleGet returns one station description.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.GetPlatform(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, p)
}

// HandlePut stores a station description.
func (h *Handler) HandlePut(w http.ResponseWriter, r *http.Request) {
	var p Platform
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		httpx.RespondBadRequest(w, "invalid JSON payload: "+err.Error())
		return
	}
	if code := mux.Vars(r)["code"]; code != "" {
		p.Code = code
	}
	if err := h.service.PutPlatform(r.Context(), p); err != nil {
		if p.Code == "" {
			httpx.RespondBadRequest(w, err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondCreated(w, p)
}

// HandleDelete removes a station description.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if err := h.service.DeletePlatform(r.Context(), code); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, map[string]string{"deleted": code})
}

// HandleParameters returns the parameters a station declares.
func (h *Handler) HandleParameters(w http.ResponseWriter, r *http.Request) {
	params, err := h.service.PlatformParameters(r.Context(), mux.Vars(r)["code"])
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, params)
}

// HandlePlatformsWithParameter returns the stations holding data for a
// parameter.
func (h *Handler) HandlePlatformsWithParameter(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.service.PlatformsWithParameter(r.Context(), mux.Vars(r)["parameter"])
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, platforms)
}

// HandleVocabulary returns every parameter definition.
func (h *Handler) HandleVocabulary(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.GetVocabulary(r.Context())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, entries)
}

// HandlePutVocabulary stores one parameter definition.
func (h *Handler) HandlePutVocabulary(w http.ResponseWriter, r *http.Request) {
	var e VocabularyEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		httpx.RespondBadRequest(w, "invalid JSON payload: "+err.Error())
		return
	}
	if code := mux.Vars(r)["code"]; code != "" {
		e.Code = code
	}
	if e.Code == "" {
		httpx.RespondBadRequest(w, "code is required")
		return
	}
	if err := h.service.PutVocabularyEntry(r.Context(), e); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondCreated(w, e)
}

// HandleExportCSV streams the station catalog as CSV.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="platforms.csv"`)
	if err := h.service.ExportCSV(r.Context(), w); err != nil {
		log.Printf("Metadata CSV export failed: %v", err)
	}
}
