package source

import (
	"sync"

	"github.com/homefront-tools/shelter-cli/internal/model"
)

// PlaceCache stores the full, radius-independent result set a text-search
// provider returned for a locality name, keyed by raw source ID. Entries are
// populated lazily and never expire within a process lifetime; facility
// locations change rarely enough that restart-scoped staleness is acceptable.
//
// Concurrent Put calls for the same new place are an idempotent overwrite:
// stored maps are replaced wholesale and never mutated after insertion.
type PlaceCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]model.Facility
}

// NewPlaceCache creates an empty cache.
func NewPlaceCache() *PlaceCache {
	return &PlaceCache{entries: make(map[string]map[string]model.Facility)}
}

// Get returns the cached record set for a place name.
func (c *PlaceCache) Get(place string) (map[string]model.Facility, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	recs, ok := c.entries[place]
	return recs, ok
}

// Put stores the record set for a place name, replacing any existing entry.
// The caller must not mutate recs after handing it over.
func (c *PlaceCache) Put(place string, recs map[string]model.Facility) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[place] = recs
}

// Len returns the number of cached places.
func (c *PlaceCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
