package pid

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oceanobs/seaportal/pkg/httpx"
	"github.com/oceanobs/seaportal/pkg/identity"
)

// Handler serves the PID API.
type Handler struct {
	service *Service
}

// NewHandler wires the PID handler.
func NewHandler(s *Service) *Handler {
	return &Handler{service: s}
}

// HandleCreate mints an identifier for the authenticated caller.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.From(r.Context())
	if !ok {
		httpx.RespondUnauthorized(w, "authentication required")
		return
	}

	var payload Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		httpx.RespondBadRequest(w, "invalid JSON payload: "+err.Error())
		return
	}

	record, err := h.service.Create(r.Context(), principal.Username, principal.Email, payload)
	if err != nil {
		if err := payload.Validate(); err != nil {
			httpx.RespondBadRequest(w, err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondCreated(w, record)
}

// HandleList returns the identifiers issued to the caller.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	principal, ok := identity.From(r.Context())
	if !ok {
		httpx.RespondUnauthorized(w, "authentication required")
		return
	}
	records, err := h.service.FindByEmail(r.Context(), principal.Email)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, records)
}

// HandleCertificate serves the stored certificate page for a DOI.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	record, err := h.service.Get(r.Context(), vars["prefix"]+"/"+vars["suffix"])
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write([]byte(record.Certificate)); err != nil {
		return
	}
}
