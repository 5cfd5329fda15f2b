// SPDX-License-Identifier: MPL-2.0

package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// cacheIndexName is the index file under the cache directory.
const cacheIndexName = "index.toml"

type (
	// cacheIndex records the images bakery has produced, keyed by
	// context digest. It is bookkeeping only: the engine's image store
	// is the source of truth, and a stale entry just misses the cache.
	cacheIndex struct {
		Images map[string]cacheEntry `toml:"images"`
	}

	cacheEntry struct {
		Tag     string    `toml:"tag"`
		Base    string    `toml:"base"`
		Context string    `toml:"context"`
		Created time.Time `toml:"created"`
	}
)

// loadCacheIndex reads the index, returning an empty one when the file
// does not exist yet.
func loadCacheIndex(cacheDir string) (*cacheIndex, error) {
	data, err := os.ReadFile(filepath.Join(cacheDir, cacheIndexName))
	if errors.Is(err, fs.ErrNotExist) {
		return &cacheIndex{Images: map[string]cacheEntry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache index: %w", err)
	}

	var idx cacheIndex
	if err := toml.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse cache index: %w", err)
	}
	if idx.Images == nil {
		idx.Images = map[string]cacheEntry{}
	}
	return &idx, nil
}

// save writes the index back to the cache directory.
func (idx *cacheIndex) save(cacheDir string) error {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := toml.Marshal(idx)
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}

	if err := os.WriteFile(filepath.Join(cacheDir, cacheIndexName), data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache index: %w", err)
	}
	return nil
}

// lookup returns the recorded entry for a context digest.
func (idx *cacheIndex) lookup(digest string) (cacheEntry, bool) {
	entry, ok := idx.Images[digest]
	return entry, ok
}

// record stores an entry for a context digest.
func (idx *cacheIndex) record(digest string, entry cacheEntry) {
	idx.Images[digest] = entry
}
