package recce

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// Cache errors
var (
	ErrCacheInitFailed = fmt.Errorf("failed to initialize cache")
)

// ResolveCache keeps successful target resolutions for a limited time so
// repeated scans of one host skip the lookup.
type ResolveCache struct {
	memCache *ristretto.Cache
	logger   *zap.Logger
	ttl      time.Duration
}

// NewResolveCache creates a resolution cache whose entries expire after ttl.
func NewResolveCache(ttl time.Duration, logger *zap.Logger) (*ResolveCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e4,     // keys to track frequency of
		MaxCost:     1 << 12, // one unit per host
		BufferItems: 64,
		Metrics:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCacheInitFailed, err)
	}

	return &ResolveCache{
		memCache: cache,
		logger:   logger.With(zap.String("component", "cache")),
		ttl:      ttl,
	}, nil
}

// Set stores the template for host. The write is visible to Get on return.
// Unresolved templates are ignored.
func (c *ResolveCache) Set(host string, tmpl AddressTemplate) {
	if !tmpl.IsValid() {
		return
	}
	if !c.memCache.SetWithTTL(host, tmpl, 1, c.ttl) {
		c.logger.Debug("Cache entry dropped", zap.String("host", host))
		return
	}
	c.memCache.Wait()
}

// Get returns the cached template for host.
func (c *ResolveCache) Get(host string) (AddressTemplate, bool) {
	val, found := c.memCache.Get(host)
	if !found {
		return AddressTemplate{}, false
	}
	tmpl, ok := val.(AddressTemplate)
	return tmpl, ok
}

// Close stops the cache's background goroutines.
func (c *ResolveCache) Close() {
	c.memCache.Close()
}

// CacheStats summarizes cache effectiveness.
type CacheStats struct {
	Hits      uint64
	Misses    uint64
	KeysAdded uint64
	Ratio     float64
}

// GetStats returns hit and miss counts since the cache was created.
func (c *ResolveCache) GetStats() CacheStats {
	m := c.memCache.Metrics
	return CacheStats{
		Hits:      m.Hits(),
		Misses:    m.Misses(),
		KeysAdded: m.KeysAdded(),
		Ratio:     m.Ratio(),
	}
}
