package deepfield

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"image"
	"sync"
)

// Cache stores previously built catalogs
type Cache interface {
	// Load returns the catalog stored under key, ok is false on a miss
	Load(key string) (c *Catalog, ok bool, err error)
	// Store saves the catalog under key, replacing any previous value
	Store(key string, c *Catalog) error
}

// cacheKeyVersion is bumped whenever the pipeline changes in a way the
// parameters do not capture
const cacheKeyVersion = 1

// CacheKey returns the cache key for a source image and validated
// parameters.  Every constant that affects the features is part of the key so
// changing any of them invalidates earlier entries.  The seed is left out as
// placements are redrawn on every load.
func CacheKey(sourceID string, p Params) string {

	p.Seed = 0

	keyed := struct {
		Version int
		Source  string
		Params  Params
	}{
		Version: cacheKeyVersion,
		Source:  sourceID,
		Params:  p,
	}

	data, err := json.Marshal(keyed)

	if err != nil {
		// validated params never fail, non finite floats do
		panic(fmt.Sprintf("cache key: %v", err))
	}

	sum := sha256.Sum256(data)

	return hex.EncodeToString(sum[:])
}

// BuildCached returns the cached catalog for the source and parameters if
// there is one, otherwise it builds the catalog and stores it.  A cached
// catalog keeps its features and artifacts but is given new placements drawn
// from p.  hit reports whether the catalog came from the cache.
func BuildCached(cache Cache, sourceID string, src *image.RGBA, p Params) (c *Catalog, hit bool, err error) {

	if err := p.Validate(); err != nil {
		return nil, false, err
	}

	key := CacheKey(sourceID, p)

	c, ok, err := cache.Load(key)

	if err != nil {
		return nil, false, fmt.Errorf("cache load: %w", err)
	}

	if ok {
		p.logf("Loaded catalog of %d features from cache", c.Size())
		// depths are drawn per run, never reused from the cache
		return c.replace(p), true, nil
	}

	c, err = Build(src, p)

	if err != nil {
		return nil, false, err
	}

	if err := cache.Store(key, c); err != nil {
		return nil, false, fmt.Errorf("cache store: %w", err)
	}

	return c, false, nil
}

// MemoryCache is an in process Cache
type MemoryCache struct {
	mu       sync.RWMutex
	catalogs map[string]*Catalog
}

// NewMemoryCache returns an empty MemoryCache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		catalogs: make(map[string]*Catalog),
	}
}

// Load returns the catalog stored under key
func (m *MemoryCache) Load(key string) (*Catalog, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.catalogs[key]

	return c, ok, nil
}

// Store saves the catalog under key
func (m *MemoryCache) Store(key string, c *Catalog) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.catalogs[key] = c

	return nil
}
