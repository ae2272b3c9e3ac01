package data

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/seaportal/pkg/export"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
	"github.com/oceanobs/seaportal/pkg/store/memory"
)

func newHandler(s *memory.Store) *Handler {
	sel := rule.NewSelector(s, 1000)
	asm := series.NewAssembler(s, nil)
	return NewHandler(s, sel, asm, export.NewExporter(sel, asm), nil)
}

func router(h *Handler) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/data", h.HandleQuery).Methods("GET")
	r.HandleFunc("/api/data", h.HandleIngest).Methods("POST")
	r.HandleFunc("/api/data/count", h.HandleCount).Methods("GET")
	r.HandleFunc("/api/data/csv", h.HandleExportCSV).Methods("GET")
	r.HandleFunc("/api/data/{id}", h.HandleGet).Methods("GET")
	r.HandleFunc("/api/data/{id}", h.HandleDelete).Methods("DELETE")
	return r
}

func seed(t *testing.T, s *memory.Store, r granularity.Rule, platform, param string, at time.Time, value float64) measurement.Measurement {
	t.Helper()
	m := measurement.Measurement{
		PlatformCode: platform,
		Parameter:    param,
		Time:         at,
		Depth:        10,
		Value:        value,
		QC:           1,
	}
	loc := granularity.Location(r, granularity.Mean)
	require.NoError(t, s.Put(context.Background(), loc, m.ID(), m))
	return m
}

func TestHandleQuery(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, granularity.H, "OBSEA", "TEMP", base, 15)
	seed(t, s, granularity.H, "OBSEA", "TEMP", base.Add(time.Hour), 16)

	rec := httptest.NewRecorder()
	router(newHandler(s)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/data?platform_code=OBSEA&parameter=TEMP", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Result struct {
			Rule         string                    `json:"rule"`
			Count        int                       `json:"count"`
			Measurements []measurement.Measurement `json:"measurements"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "H", resp.Result.Rule)
	assert.Equal(t, 2, resp.Result.Count)
	require.Len(t, resp.Result.Measurements, 2)
	assert.Equal(t, 15.0, resp.Result.Measurements[0].Value)
}

func TestHandleQueryNoDataIs404(t *testing.T) {
	rec := httptest.NewRecorder()
	router(newHandler(memory.New())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/data?platform_code=GHOST&parameter=TEMP", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleQueryMissingParamsIs400(t *testing.T) {
	rec := httptest.NewRecorder()
	router(newHandler(memory.New())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/data?platform_code=OBSEA", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCount(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seed(t, s, granularity.H, "OBSEA", "TEMP", base, 15)

	rec := httptest.NewRecorder()
	router(newHandler(s)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/data/count?platform_code=OBSEA&parameter=TEMP", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Result map[string]int `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Result["H"])
	assert.Equal(t, 0, resp.Result["M"])
}

func TestHandleIngestAndGet(t *testing.T) {
	s := memory.New()
	h := newHandler(s)
	r := router(h)

	payload := map[string]interface{}{
		"rule": "R",
		"measurements": []measurement.Measurement{{
			PlatformCode: "OBSEA",
			Parameter:    "TEMP",
			Time:         time.Date(2021, 3, 1, 12, 0, 0, 0, time.UTC),
			Depth:        20,
			Value:        14.2,
			QC:           1,
		}},
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	id := "OBSEA_TEMP_20_2021-03-01_12:00:00"
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/data/"+id+"?rule=R", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Result measurement.Measurement `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 14.2, resp.Result.Value)
}

func TestHandleIngestRejectsBadPayload(t *testing.T) {
	r := router(newHandler(memory.New()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data", bytes.NewReader([]byte("{"))))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, err := json.Marshal(map[string]interface{}{"rule": "X", "measurements": []measurement.Measurement{{PlatformCode: "A", Parameter: "TEMP", Time: time.Now()}}})
	require.NoError(t, err)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/data", bytes.NewReader(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDeleteMissingIs404(t *testing.T) {
	rec := httptest.NewRecorder()
	router(newHandler(memory.New())).ServeHTTP(rec,
		httptest.NewRequest(http.MethodDelete, "/api/data/nope?rule=R", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleExportCSV(t *testing.T) {
	s := memory.New()
	seed(t, s, granularity.H, "OBSEA", "TEMP", time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC), 15)

	rec := httptest.NewRecorder()
	router(newHandler(s)).ServeHTTP(rec,
		httptest.NewRequest(http.MethodGet, "/api/data/csv?platform_code=OBSEA&parameter=TEMP", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "platform_code,parameter,time")
	assert.Contains(t, rec.Body.String(), "OBSEA")
}
