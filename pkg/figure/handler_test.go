package figure

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/store/memory"
)

func newRouter(t *testing.T, s *memory.Store) *mux.Router {
	t.Helper()
	c, err := cache.NewDisk(t.TempDir())
	require.NoError(t, err)
	b := NewBuilder(newService(s, stubMetadata{}), c, HTMLRenderer{}, 10*time.Second)

	r := mux.NewRouter()
	r.HandleFunc("/api/figure/{kind}", NewHandler(b).HandleFigure).Methods("GET")
	return r
}

func TestHandleFigurePollUntilBuilt(t *testing.T) {
	s := memory.New()
	base := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	seedAt(t, s, granularity.H, "A", "TEMP", []time.Time{base, base.Add(time.Hour)}, 15)
	router := newRouter(t, s)

	url := "/api/figure/line?platform_code=A&parameter=TEMP"

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusAccepted, rec.Code, "first poll starts the build")

	require.Eventually(t, func() bool {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
		return rec.Code == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "figure-data")
}

func TestHandleFigureRejectsUnknownKind(t *testing.T) {
	router := newRouter(t, memory.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/figure/sparkline?platform_code=A&parameter=TEMP", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleFigureRejectsMissingLists(t *testing.T) {
	router := newRouter(t, memory.New())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/figure/line?platform_code=A", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
