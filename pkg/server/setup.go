// Package server wires the portal's services and routes.
package server

import (
	"log"
	"net/http"
	"os"

	"github.com/gorilla/mux"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/config"
	"github.com/oceanobs/seaportal/pkg/data"
	"github.com/oceanobs/seaportal/pkg/export"
	"github.com/oceanobs/seaportal/pkg/figure"
	"github.com/oceanobs/seaportal/pkg/httpx"
	"github.com/oceanobs/seaportal/pkg/identity"
	"github.com/oceanobs/seaportal/pkg/ingest"
	"github.com/oceanobs/seaportal/pkg/metadata"
	"github.com/oceanobs/seaportal/pkg/pid"
	"github.com/oceanobs/seaportal/pkg/rule"
	"github.com/oceanobs/seaportal/pkg/series"
	"github.com/oceanobs/seaportal/pkg/store"
	"github.com/oceanobs/seaportal/pkg/store/badger"
)

// InitializeBackend opens the embedded store per configuration.
func InitializeBackend(cfg config.Config) (store.Backend, error) {
	if !cfg.InMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
	}
	log.Println("Initializing BadgerDB backend with Snappy compression...")
	backend, err := badger.New(badger.Config{Path: cfg.DataDir, InMemory: cfg.InMemory})
	if err != nil {
		return nil, err
	}
	log.Println("BadgerDB backend initialized successfully")
	return backend, nil
}

// Services bundles everything the router serves.
type Services struct {
	Data     *data.Handler
	Metadata *metadata.Handler
	Figure   *figure.Handler
	PID      *pid.Handler
	Hub      *ingest.Hub
	Auth     *identity.Middleware
}

// InitializeServices builds the full service graph over the backend.
func InitializeServices(cfg config.Config, backend store.Backend) (*Services, error) {
	artifacts, err := cache.NewDisk(cfg.CacheDir)
	if err != nil {
		return nil, err
	}

	selector := rule.NewSelector(backend, cfg.MaxPlotPoints)
	assembler := series.NewAssembler(backend, artifacts)
	exporter := export.NewExporter(selector, assembler)
	log.Printf("Rule selector ready (max %d plot points)", cfg.MaxPlotPoints)

	metadataService := metadata.NewService(backend, artifacts)
	figureService := figure.NewService(selector, assembler, backend, metadataService)
	builder := figure.NewBuilder(figureService, artifacts, figure.HTMLRenderer{}, config.FigureBuildTimeout)
	log.Println("Figure builder ready (background builds, disk cache)")

	registry := pid.NewRegistry(cfg.RegistryURL, cfg.DOIPrefix, cfg.RegistryUser, cfg.RegistryPass)
	if registry.Configured() {
		log.Printf("DOI registry client ready (prefix %s)", cfg.DOIPrefix)
	} else {
		log.Printf("No DOI registry configured, minting draft identifiers under %s", cfg.DOIPrefix)
	}
	pidService := pid.NewService(backend, registry)

	hub := ingest.NewHub()

	return &Services{
		Data:     data.NewHandler(backend, selector, assembler, exporter, hub),
		Metadata: metadata.NewHandler(metadataService),
		Figure:   figure.NewHandler(builder),
		PID:      pid.NewHandler(pidService),
		Hub:      hub,
		Auth:     identity.NewMiddleware(backend),
	}, nil
}

// NewRouter builds the full route table.
func NewRouter(s *Services) *mux.Router {
	router := mux.NewRouter()
	router.Use(corsMiddleware)

	api := router.PathPrefix("/api").Subrouter()

	// Measurement data
	api.HandleFunc("/data", s.Data.HandleQuery).Methods("GET")
	api.Handle("/data", s.Auth.RequireAdmin(http.HandlerFunc(s.Data.HandleIngest))).Methods("POST")
	api.HandleFunc("/data/count", s.Data.HandleCount).Methods("GET")
	api.HandleFunc("/data/csv", s.Data.HandleExportCSV).Methods("GET")
	api.HandleFunc("/data/json", s.Data.HandleExportJSON).Methods("GET")
	api.HandleFunc("/data/{id}", s.Data.HandleGet).Methods("GET")
	api.Handle("/data/{id}", s.Auth.RequireAdmin(http.HandlerFunc(s.Data.HandleDelete))).Methods("DELETE")

	// Platform metadata and vocabulary
	api.HandleFunc("/metadata", s.Metadata.HandleList).Methods("GET")
	api.HandleFunc("/metadata/csv", s.Metadata.HandleExportCSV).Methods("GET")
	api.HandleFunc("/metadata/{code}", s.Metadata.HandleGet).Methods("GET")
	api.Handle("/metadata/{code}", s.Auth.RequireAdmin(http.HandlerFunc(s.Metadata.HandlePut))).Methods("PUT")
	api.Handle("/metadata/{code}", s.Auth.RequireAdmin(http.HandlerFunc(s.Metadata.HandleDelete))).Methods("DELETE")
	api.HandleFunc("/metadata/{code}/parameters", s.Metadata.HandleParameters).Methods("GET")
	api.HandleFunc("/parameters/{parameter}/platforms", s.Metadata.HandlePlatformsWithParameter).Methods("GET")
	api.HandleFunc("/vocabulary", s.Metadata.HandleVocabulary).Methods("GET")
	api.Handle("/vocabulary/{code}", s.Auth.RequireAdmin(http.HandlerFunc(s.Metadata.HandlePutVocabulary))).Methods("PUT")

	// Figures
	api.HandleFunc("/figure/{kind}", s.Figure.HandleFigure).Methods("GET")

	// Persistent identifiers
	api.Handle("/pid", s.Auth.RequireToken(http.HandlerFunc(s.PID.HandleCreate))).Methods("POST")
	api.Handle("/pid", s.Auth.RequireToken(http.HandlerFunc(s.PID.HandleList))).Methods("GET")
	api.HandleFunc("/pid/{prefix}/{suffix}", s.PID.HandleCertificate).Methods("GET")

	// Live stream and health
	api.HandleFunc("/ws", s.Hub.Handle()).Methods("GET")
	api.HandleFunc("/health", handleHealth).Methods("GET")

	return router
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	httpx.RespondOK(w, map[string]string{"status": "healthy"})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
