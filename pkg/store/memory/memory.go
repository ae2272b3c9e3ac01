// Package memory implements the store contract in process memory. Data is
// lost on restart. Useful for testing and development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/store"
)

// Store keeps measurements and documents in nested maps keyed by location.
type Store struct {
	mu           sync.RWMutex
	measurements map[string]map[string]measurement.Measurement
	documents    map[string]map[string]map[string]any
	nextDocID    int
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		measurements: make(map[string]map[string]measurement.Measurement),
		documents:    make(map[string]map[string]map[string]any),
	}
}

// Count returns the number of matching records in location.
func (s *Store) Count(ctx context.Context, location string, f measurement.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.measurements[location] {
		if f.Matches(m) {
			count++
		}
	}
	return count, nil
}

// ListIDs returns the ids of matching records, sorted for determinism.
func (s *Store) ListIDs(ctx context.Context, location string, f measurement.Filter) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id, m := range s.measurements[location] {
		if f.Matches(m) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// GetByID fetches one record.
func (s *Store) GetByID(ctx context.Context, location, id string) (measurement.Measurement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.measurements[location][id]
	if !ok {
		return measurement.Measurement{}, fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
	}
	return m, nil
}

// Put stores a record under id.
func (s *Store) Put(ctx context.Context, location, id string, m measurement.Measurement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.measurements[location] == nil {
		s.measurements[location] = make(map[string]measurement.Measurement)
	}
	s.measurements[location][id] = m
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, location, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.measurements[location][id]; !ok {
		return fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
	}
	delete(s.measurements[location], id)
	return nil
}

// GetDocument fetches a raw document.
func (s *Store) GetDocument(ctx context.Context, location, id string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.documents[location][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
	}
	return doc, nil
}

// PutDocument stores a raw document, assigning an id when none is given.
func (s *Store) PutDocument(ctx context.Context, location, id string, doc map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "" {
		s.nextDocID++
		id = fmt.Sprintf("doc-%d", s.nextDocID)
	}
	if s.documents[location] == nil {
		s.documents[location] = make(map[string]map[string]any)
	}
	s.documents[location][id] = doc
	return id, nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, location, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[location][id]; !ok {
		return fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
	}
	delete(s.documents[location], id)
	return nil
}

// ListDocumentIDs returns every document id in a location, sorted.
func (s *Store) ListDocumentIDs(ctx context.Context, location string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	for id := range s.documents[location] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// SearchDocuments returns documents whose named field equals value.
func (s *Store) SearchDocuments(ctx context.Context, location, field, value string) (map[string]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make(map[string]map[string]any)
	for id, doc := range s.documents[location] {
		if v, ok := doc[field].(string); ok && v == value {
			results[id] = doc
		}
	}
	return results, nil
}

// Close is a no-op for memory storage.
func (s *Store) Close() error {
	return nil
}
