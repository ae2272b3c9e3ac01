// Package data exposes the measurement REST API: querying assembled
// series, counting, exporting, and the admin ingest/delete surface.
package data

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/oceanobs/seaportal/pkg/export"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/httpx"
	"github.com/oceanobs/seaportal/pkg/ingest"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
	"github.com/oceanobs/seaportal/pkg/store"
)

// Handler serves the data API.
type Handler struct {
	store     store.Store
	selector  *rule.Selector
	assembler *series.Assembler
	exporter  *export.Exporter
	hub       *ingest.Hub
}

// NewHandler wires the data API handler. hub may be nil when live
// streaming is disabled.
func NewHandler(st store.Store, sel *rule.Selector, asm *series.Assembler, exp *export.Exporter, hub *ingest.Hub) *Handler {
	return &Handler{store: st, selector: sel, assembler: asm, exporter: exp, hub: hub}
}

// HandleQuery resolves the best rule for the request and returns the
// assembled series together with the rule it settled on.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r)
	if err != nil {
		httpx.RespondBadRequest(w, err.Error())
		return
	}

	selected, err := h.selector.Select(r.Context(), spec.Platforms, spec.Params, spec.Filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	ms, err := h.assembler.Assemble(r.Context(), spec.Platforms, spec.Params, selected, spec.Filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	httpx.RespondOK(w, map[string]interface{}{
		"rule":         selected,
		"count":        len(ms),
		"measurements": ms,
	})
}

// HandleCount returns how many records each granularity holds for the
// request, without fetching any of them.
func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r)
	if err != nil {
		httpx.RespondBadRequest(w, err.Error())
		return
	}

	f := spec.Filter
	f.PlatformCodes = spec.Platforms
	f.Parameters = spec.Params

	counts := make(map[string]int, len(granularity.Rules))
	for _, level := range granularity.Rules {
		n, err := h.store.Count(r.Context(), granularity.Location(level, granularity.Mean), f)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		counts[string(level)] = n
	}
	httpx.RespondOK(w, counts)
}

// HandleGet fetches one record by id from the rule's location.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	level, ok := parseRule(r)
	if !ok {
		httpx.RespondBadRequest(w, "invalid or missing rule")
		return
	}
	id := mux.Vars(r)["id"]

	m, err := h.store.GetByID(r.Context(), granularity.Location(level, granularity.Mean), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, m)
}

// HandleExportCSV streams the assembled series as a CSV download.
func (h *Handler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r)
	if err != nil {
		httpx.RespondBadRequest(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="measurements.csv"`)
	result, err := h.exporter.ExportCSV(r.Context(), w, export.Options{
		Platforms: spec.Platforms,
		Params:    spec.Params,
		Filter:    spec.Filter,
	})
	if err != nil {
		// Headers may already be out; all we can do is log.
		log.Printf("CSV export failed: %v", err)
		return
	}
	log.Printf("Exported %d records at rule %s as CSV", result.Records, result.Rule)
}

// HandleExportJSON streams the assembled series as a JSON download.
func (h *Handler) HandleExportJSON(w http.ResponseWriter, r *http.Request) {
	spec, err := parseQuery(r)
	if err != nil {
		httpx.RespondBadRequest(w, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="measurements.json"`)
	result, err := h.exporter.ExportJSON(r.Context(), w, export.Options{
		Platforms: spec.Platforms,
		Params:    spec.Params,
		Filter:    spec.Filter,
	})
	if err != nil {
		log.Printf("JSON export failed: %v", err)
		return
	}
	log.Printf("Exported %d records at rule %s as JSON", result.Records, result.Rule)
}

// ingestRequest is the admin write payload.
type ingestRequest struct {
	Rule         string                    `json:"rule"`
	Measurements []measurement.Measurement `json:"measurements"`
}

// HandleIngest stores a batch of records at the given rule's location and
// streams them to dashboard subscribers. Record ids derive from platform,
// parameter, depth and time, so re-posting the same record overwrites it.
func (h *Handler) HandleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.RespondBadRequest(w, "invalid JSON payload: "+err.Error())
		return
	}
	level := granularity.Rule(req.Rule)
	if req.Rule == "" {
		level = granularity.R
	}
	if !granularity.Valid(level) {
		httpx.RespondBadRequest(w, fmt.Sprintf("unknown rule %q", req.Rule))
		return
	}
	if len(req.Measurements) == 0 {
		httpx.RespondBadRequest(w, "no measurements in payload")
		return
	}
	for i, m := range req.Measurements {
		if m.PlatformCode == "" || m.Parameter == "" || m.Time.IsZero() {
			httpx.RespondBadRequest(w, fmt.Sprintf("measurement %d: platform_code, parameter and time are required", i))
			return
		}
	}

	location := granularity.Location(level, granularity.Mean)
	for _, m := range req.Measurements {
		if err := h.store.Put(r.Context(), location, m.ID(), m); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}

	if h.hub != nil {
		if err := h.hub.BroadcastMeasurements(req.Measurements); err != nil {
			log.Printf("Failed to broadcast ingested measurements: %v", err)
		}
	}

	httpx.RespondCreated(w, map[string]interface{}{
		"stored": len(req.Measurements),
		"rule":   level,
	})
}

// HandleDelete removes one record from the rule's location.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	level, ok := parseRule(r)
	if !ok {
		httpx.RespondBadRequest(w, "invalid or missing rule")
		return
	}
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), granularity.Location(level, granularity.Mean), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.RespondOK(w, map[string]string{"deleted": id})
}

// parseRule reads the rule query parameter, defaulting to raw.
func parseRule(r *http.Request) (granularity.Rule, bool) {
	v := r.URL.Query().Get("rule")
	if v == "" {
		return granularity.R, true
	}
	level := granularity.Rule(v)
	return level, granularity.Valid(level)
}
