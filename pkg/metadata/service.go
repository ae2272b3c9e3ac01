// Package metadata manages the station descriptions and the parameter
// vocabulary that sit next to the measurement data.
package metadata

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"sort"
	"strings"

	"github.com/oceanobs/seaportal/pkg/cache"
	"github.com/oceanobs/seaportal/pkg/figure"
	"github.com/oceanobs/seaportal/pkg/granularity"
	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/store"
)

const (
	platformLocation   = "metadata"
	vocabularyLocation = "vocabulary"
)

// Service reads and writes platform metadata and vocabulary documents.
// Writes invalidate the cached map figures, which render from metadata.
type Service struct {
	backend store.Backend
	cache   *cache.Disk
}

// NewService wires the metadata service. The cache may be nil.
func NewService(backend store.Backend, c *cache.Disk) *Service {
	return &Service{backend: backend, cache: c}
}

// Platform is a station description. Extra fields the ingesting
// institution supplies are kept verbatim in Extra.
type Platform struct {
	Code        string         `json:"platform_code"`
	Name        string         `json:"name"`
	Lat         float64        `json:"lat"`
	Lon         float64        `json:"lon"`
	Parameters  []string       `json:"parameters"`
	Institution string         `json:"institution,omitempty"`
	Extra       map[string]any `json:"extra,omitempty"`
}

// GetPlatform fetches one station description.
func (s *Service) GetPlatform(ctx context.Context, code string) (Platform, error) {
	var p Platform
	if err := store.GetJSONDocument(ctx, s.backend, platformLocation, code, &p); err != nil {
		return Platform{}, err
	}
	return p, nil
}

// PutPlatform stores a station description and drops every cached map
// figure, which would otherwise keep showing the old station set.
func (s *Service) PutPlatform(ctx context.Context, p Platform) error {
	if p.Code == "" {
		return fmt.Errorf("platform_code is required")
	}
	if _, err := store.PutJSONDocument(ctx, s.backend, platformLocation, p.Code, p); err != nil {
		return err
	}
	s.invalidateMaps()
	return nil
}

// DeletePlatform removes a station description and its map figures.
func (s *Service) DeletePlatform(ctx context.Context, code string) error {
	if err := s.backend.DeleteDocument(ctx, platformLocation, code); err != nil {
		return err
	}
	s.invalidateMaps()
	return nil
}

func (s *Service) invalidateMaps() {
	if s.cache == nil {
		return
	}
	if err := s.cache.RemovePrefix(string(figure.Map) + "-"); err != nil {
		log.Printf("Failed to invalidate map figures: %v", err)
	}
}

// ListPlatforms returns the described stations that actually hold data,
// checked against the monthly aggregates.
func (s *Service) ListPlatforms(ctx context.Context) ([]Platform, error) {
	codes, err := s.backend.ListDocumentIDs(ctx, platformLocation)
	if err != nil {
		return nil, err
	}
	location := granularity.Location(granularity.M, granularity.Mean)

	var platforms []Platform
	for _, code := range codes {
		count, err := s.backend.Count(ctx, location, measurement.Filter{PlatformCodes: []string{code}})
		if err != nil {
			return nil, fmt.Errorf("count for %s: %w", code, err)
		}
		if count == 0 {
			continue
		}
		p, err := s.GetPlatform(ctx, code)
		if err != nil {
			return nil, err
		}
		platforms = append(platforms, p)
	}
	sort.Slice(platforms, func(i, j int) bool { return platforms[i].Code < platforms[j].Code })
	return platforms, nil
}

// PlatformParameters returns the parameters a station declares.
func (s *Service) PlatformParameters(ctx context.Context, code string) ([]string, error) {
	p, err := s.GetPlatform(ctx, code)
	if err != nil {
		return nil, err
	}
	return p.Parameters, nil
}

// PlatformsWithParameter returns the stations declaring a parameter that
// hold data for it.
func (s *Service) PlatformsWithParameter(ctx context.Context, parameter string) ([]string, error) {
	codes, err := s.backend.ListDocumentIDs(ctx, platformLocation)
	if err != nil {
		return nil, err
	}
	location := granularity.Location(granularity.M, granularity.Mean)

	var out []string
	for _, code := range codes {
		p, err := s.GetPlatform(ctx, code)
		if err != nil {
			return nil, err
		}
		if !contains(p.Parameters, parameter) {
			continue
		}
		count, err := s.backend.Count(ctx, location, measurement.Filter{
			PlatformCodes: []string{code},
			Parameters:    []string{parameter},
		})
		if err != nil {
			return nil, fmt.Errorf("count for %s/%s: %w", code, parameter, err)
		}
		if count > 0 {
			out = append(out, code)
		}
	}
	sort.Strings(out)
	return out, nil
}

// PlatformPositions implements the figure metadata source.
func (s *Service) PlatformPositions(ctx context.Context) ([]figure.Marker, error) {
	platforms, err := s.ListPlatforms(ctx)
	if err != nil {
		return nil, err
	}
	markers := make([]figure.Marker, 0, len(platforms))
	for _, p := range platforms {
		markers = append(markers, figure.Marker{Code: p.Code, Lat: p.Lat, Lon: p.Lon})
	}
	return markers, nil
}

// VocabularyEntry documents one parameter code.
type VocabularyEntry struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Units       string `json:"units,omitempty"`
	Description string `json:"description,omitempty"`
}

// GetVocabulary returns every known parameter definition.
func (s *Service) GetVocabulary(ctx context.Context) ([]VocabularyEntry, error) {
	ids, err := s.backend.ListDocumentIDs(ctx, vocabularyLocation)
	if err != nil {
		return nil, err
	}
	entries := make([]VocabularyEntry, 0, len(ids))
	for _, id := range ids {
		var e VocabularyEntry
		if err := store.GetJSONDocument(ctx, s.backend, vocabularyLocation, id, &e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Code < entries[j].Code })
	return entries, nil
}

// PutVocabularyEntry stores one parameter definition.
func (s *Service) PutVocabularyEntry(ctx context.Context, e VocabularyEntry) error {
	if e.Code == "" {
		return fmt.Errorf("code is required")
	}
	_, err := store.PutJSONDocument(ctx, s.backend, vocabularyLocation, e.Code, e)
	return err
}

// ExportCSV writes the station catalog as CSV.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer) error {
	platforms, err := s.ListPlatforms(ctx)
	if err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"platform_code", "name", "lat", "lon", "parameters", "institution"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, p := range platforms {
		row := []string{
			p.Code,
			p.Name,
			fmt.Sprintf("%g", p.Lat),
			fmt.Sprintf("%g", p.Lon),
			strings.Join(p.Parameters, ";"),
			p.Institution,
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
