// Package cache persists generated artifacts (figures, CSV files, partial
// series) on disk under deterministic keys, so a repeated request reuses
// the artifact a previous request already paid for.
//
// There is no eviction: artifacts live until something explicitly removes
// them. Cached series can therefore go stale when the underlying
// measurements are deleted; callers that mutate data are expected to
// invalidate the affected key prefixes themselves.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// maxKeyLen keeps generated filenames under common filesystem limits.
// Longer keys are folded through a hash, keeping a readable prefix.
const maxKeyLen = 200

// Disk is a flat one-file-per-key artifact store rooted at a directory.
type Disk struct {
	dir string
}

// NewDisk creates the directory if needed and returns a cache over it.
func NewDisk(dir string) (*Disk, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Disk{dir: dir}, nil
}

// Dir returns the cache root.
func (d *Disk) Dir() string {
	return d.dir
}

// Path returns the filesystem location for a key.
func (d *Disk) Path(key string) string {
	return filepath.Join(d.dir, SafeKey(key))
}

// Exists reports whether an artifact is resident for the key.
func (d *Disk) Exists(key string) bool {
	_, err := os.Stat(d.Path(key))
	return err == nil
}

// Get reads the artifact for a key.
func (d *Disk) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(d.Path(key))
	if err != nil {
		return nil, fmt.Errorf("cache get %q: %w", key, err)
	}
	return data, nil
}

// Put writes the artifact for a key. Writes go through a temp file and a
// rename, so a concurrent poll of the key never observes a partial
// artifact; when two writers race, the last rename wins.
func (d *Disk) Put(key string, data []byte) error {
	path := d.Path(key)
	tmp, err := os.CreateTemp(d.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache put %q: %w", key, err)
	}
	return nil
}

// Remove deletes one artifact. Removing an absent key is not an error.
func (d *Disk) Remove(key string) error {
	err := os.Remove(d.Path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("cache remove %q: %w", key, err)
	}
	return nil
}

// RemovePrefix deletes every artifact whose key starts with prefix. Used
// to invalidate all map figures when platform metadata changes.
func (d *Disk) RemovePrefix(prefix string) error {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return fmt.Errorf("cache scan: %w", err)
	}
	safe := SafeKey(prefix)
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), safe) {
			if err := os.Remove(filepath.Join(d.dir, entry.Name())); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("cache remove %q: %w", entry.Name(), err)
			}
		}
	}
	return nil
}

// SafeKey normalizes a cache key into a filesystem-safe name: colons (from
// ISO timestamps) become dashes, path separators become underscores, and
// overlong keys keep a readable prefix plus a hash of the full key.
func SafeKey(key string) string {
	safe := strings.NewReplacer(":", "-", "/", "_", "\\", "_").Replace(key)
	if len(safe) <= maxKeyLen {
		return safe
	}
	ext := filepath.Ext(safe)
	return fmt.Sprintf("%s-%016x%s", safe[:64], xxhash.Sum64String(key), ext)
}
