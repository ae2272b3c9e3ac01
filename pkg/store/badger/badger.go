// Package badger implements the store contract on BadgerDB, the portal's
// embedded stand-in for a remote search/analytics engine. Records are JSON
// values under location-prefixed keys, so each storage location behaves as
// its own index and prefix scans stay cheap.
package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"

	"github.com/oceanobs/seaportal/pkg/measurement"
	"github.com/oceanobs/seaportal/pkg/store"
)

// Key namespaces. Measurements and free-form documents share the DB but
// never collide.
const (
	nsMeasurement = 'm'
	nsDocument    = 'd'
)

// Store implements store.Backend using BadgerDB.
type Store struct {
	db *badgerdb.DB
}

// Config holds BadgerDB configuration.
type Config struct {
	// Path to the database files.
	Path string

	// InMemory mode (for testing).
	InMemory bool
}

// New opens a BadgerDB-backed store.
func New(cfg Config) (*Store, error) {
	opts := badgerdb.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = opts.WithInMemory(true)
	}
	opts = opts.
		WithCompression(options.Snappy).
		WithNumVersionsToKeep(1).
		WithLogger(nil)

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return &Store{db: db}, nil
}

// makeKey builds ns 0x00 location 0x00 id. Locations and ids never contain
// NUL, so the encoding is unambiguous.
func makeKey(ns byte, location, id string) []byte {
	key := make([]byte, 0, len(location)+len(id)+3)
	key = append(key, ns, 0)
	key = append(key, location...)
	key = append(key, 0)
	key = append(key, id...)
	return key
}

func locationPrefix(ns byte, location string) []byte {
	prefix := make([]byte, 0, len(location)+3)
	prefix = append(prefix, ns, 0)
	prefix = append(prefix, location...)
	prefix = append(prefix, 0)
	return prefix
}

// Count returns the number of matching records in location.
func (s *Store) Count(ctx context.Context, location string, f measurement.Filter) (int, error) {
	count := 0
	err := s.scan(ctx, location, f, func(string, measurement.Measurement) error {
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListIDs returns the ids of matching records in key order.
func (s *Store) ListIDs(ctx context.Context, location string, f measurement.Filter) ([]string, error) {
	var ids []string
	err := s.scan(ctx, location, f, func(id string, _ measurement.Measurement) error {
		ids = append(ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// scan iterates every record in location matching f. The filter runs after
// decode; prefix iteration already restricts the scan to one location.
func (s *Store) scan(ctx context.Context, location string, f measurement.Filter, fn func(id string, m measurement.Measurement) error) error {
	prefix := locationPrefix(nsMeasurement, location)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchSize = 100

		it := txn.NewIterator(opts)
		defer it.Close()

		n := 0
		for it.Rewind(); it.Valid(); it.Next() {
			n++
			if n%1000 == 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				default:
				}
			}

			item := it.Item()
			id := string(item.Key()[len(prefix):])
			var m measurement.Measurement
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &m)
			}); err != nil {
				return fmt.Errorf("failed to decode record %s/%s: %w", location, id, err)
			}
			if !f.Matches(m) {
				continue
			}
			if err := fn(id, m); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// GetByID fetches one record.
func (s *Store) GetByID(ctx context.Context, location, id string) (measurement.Measurement, error) {
	var m measurement.Measurement
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(makeKey(nsMeasurement, location, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &m)
		})
	})
	if err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return measurement.Measurement{}, fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
		}
		return measurement.Measurement{}, wrapDBErr(err)
	}
	return m, nil
}

// Put stores a record under id, replacing any previous one.
func (s *Store) Put(ctx context.Context, location, id string, m measurement.Measurement) error {
	value, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(makeKey(nsMeasurement, location, id), value)
	})
	if err != nil {
		return wrapDBErr(err)
	}
	return nil
}

// Delete removes a record.
func (s *Store) Delete(ctx context.Context, location, id string) error {
	key := makeKey(nsMeasurement, location, id)
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		// Badger deletes are blind; check existence first so callers can
		// distinguish "deleted" from "was never there".
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
		}
		return wrapDBErr(err)
	}
	return nil
}

// GetDocument fetches a raw document.
func (s *Store) GetDocument(ctx context.Context, location, id string) (map[string]any, error) {
	var doc map[string]any
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(makeKey(nsDocument, location, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &doc)
		})
	})
	if err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return nil, fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
		}
		return nil, wrapDBErr(err)
	}
	return doc, nil
}

// PutDocument stores a raw document. An empty id is replaced by a content
// hash, so anonymous writes of identical documents stay idempotent.
func (s *Store) PutDocument(ctx context.Context, location, id string, doc map[string]any) (string, error) {
	value, err := json.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("failed to encode document: %w", err)
	}
	if id == "" {
		id = strconv.FormatUint(xxhash.Sum64(value), 16)
	}
	err = s.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(makeKey(nsDocument, location, id), value)
	})
	if err != nil {
		return "", wrapDBErr(err)
	}
	return id, nil
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, location, id string) error {
	key := makeKey(nsDocument, location, id)
	err := s.db.Update(func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if err != nil {
		if err == badgerdb.ErrKeyNotFound {
			return fmt.Errorf("%s/%s: %w", location, id, store.ErrNotFound)
		}
		return wrapDBErr(err)
	}
	return nil
}

// ListDocumentIDs returns every document id in a location in key order.
func (s *Store) ListDocumentIDs(ctx context.Context, location string) ([]string, error) {
	prefix := locationPrefix(nsDocument, location)
	var ids []string
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(prefix):]))
		}
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(err)
	}
	return ids, nil
}

// SearchDocuments returns documents whose named field equals value.
func (s *Store) SearchDocuments(ctx context.Context, location, field, value string) (map[string]map[string]any, error) {
	prefix := locationPrefix(nsDocument, location)
	results := make(map[string]map[string]any)
	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix

		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			var doc map[string]any
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &doc)
			}); err != nil {
				return fmt.Errorf("failed to decode document %s/%s: %w", location, id, err)
			}
			if v, ok := doc[field].(string); ok && v == value {
				results[id] = doc
			}
		}
		return nil
	})
	if err != nil {
		return nil, wrapDBErr(err)
	}
	return results, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// wrapDBErr maps engine-level failures onto the portal's taxonomy.
func wrapDBErr(err error) error {
	if err == nil {
		return nil
	}
	if err == context.Canceled || err == context.DeadlineExceeded {
		return err
	}
	return fmt.Errorf("%w: %v", store.ErrConnection, err)
}
