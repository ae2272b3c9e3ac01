// Package store defines the read/write contract the portal expects from its
// search/analytics engine. Implementations: memory (testing), badger
// (embedded persistent backend).
package store

import (
	"context"
	"errors"

	"github.com/oceanobs/seaportal/pkg/measurement"
)

// Sentinel errors forming the portal's failure taxonomy. Callers branch
// with errors.Is; implementations wrap these with context.
var (
	// ErrNotFound: the lookup matched zero records. Expected and common,
	// surfaced to users as "no data", never as a retryable failure.
	ErrNotFound = errors.New("not found")

	// ErrConnection: the engine is unreachable. Distinct from ErrNotFound
	// so callers know a retry may help.
	ErrConnection = errors.New("store connection error")

	// ErrConsistency: an id returned by a list query was missing on direct
	// fetch. The store changed under us; the caller decides what to do.
	ErrConsistency = errors.New("store consistency error")
)

// Store is the search/analytics engine contract. A location names one
// physical table/index; the granularity catalog maps rules to locations.
type Store interface {
	// Count returns the number of records in location matching the filter.
	// A missing location counts as zero, not as an error.
	Count(ctx context.Context, location string, f measurement.Filter) (int, error)

	// ListIDs returns the ids of all records in location matching the
	// filter. An empty result is not an error.
	ListIDs(ctx context.Context, location string, f measurement.Filter) ([]string, error)

	// GetByID fetches one record. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, location, id string) (measurement.Measurement, error)

	// Put stores a record under the given id, replacing any previous one.
	Put(ctx context.Context, location, id string, m measurement.Measurement) error

	// Delete removes a record. Returns ErrNotFound if absent.
	Delete(ctx context.Context, location, id string) error

	// Close releases the backing engine's resources.
	Close() error
}

// Documents are free-form records (platform metadata, vocabularies, audit
// entries, PID registrations) living in their own locations next to the
// measurement data.
type DocumentStore interface {
	// GetDocument fetches a raw document. Returns ErrNotFound if absent.
	GetDocument(ctx context.Context, location, id string) (map[string]any, error)

	// PutDocument stores a raw document. An empty id asks the store to
	// assign one; the assigned id is returned.
	PutDocument(ctx context.Context, location, id string, doc map[string]any) (string, error)

	// DeleteDocument removes a document. Returns ErrNotFound if absent.
	DeleteDocument(ctx context.Context, location, id string) error

	// ListDocumentIDs returns every document id in a location.
	ListDocumentIDs(ctx context.Context, location string) ([]string, error)

	// SearchDocuments returns documents whose named field equals value.
	SearchDocuments(ctx context.Context, location, field, value string) (map[string]map[string]any, error)
}

// Backend is the full engine surface the server wires together.
type Backend interface {
	Store
	DocumentStore
}
