package dashboard

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"sync"
	"time"

	"github.com/coocood/freecache"
	json "github.com/goccy/go-json"
)

// RenderCache memoizes rendered chart HTML so repeated fetches are cheap.
type RenderCache interface {
	GetOrRender(key string, render func() (string, error)) (string, error)
}

// ChartCache is an in-memory TTL cache for rendered charts.
type ChartCache struct {
	ttl     time.Duration
	mu      sync.RWMutex
	entries map[string]cachedChart
}

type cachedChart struct {
	html    string
	expires time.Time
}

// NewChartCache builds a cache with the provided TTL. A non-positive TTL
// disables caching.
func NewChartCache(ttl time.Duration) *ChartCache {
	return &ChartCache{
		ttl:     ttl,
		entries: make(map[string]cachedChart),
	}
}

// GetOrRender returns a cached entry or renders/stores a new one.
func (c *ChartCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if html, ok := c.get(key); ok {
		return html, nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	c.set(key, html)
	return html, nil
}

// Purge drops expired entries.
func (c *ChartCache) Purge() int {
	if c == nil {
		return 0
	}
	now := time.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

func (c *ChartCache) get(key string) (string, bool) {
	if c == nil || c.ttl <= 0 {
		return "", false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(entry.expires) {
		return "", false
	}
	return entry.html, true
}

func (c *ChartCache) set(key, html string) {
	if c == nil || c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cachedChart{
		html:    html,
		expires: time.Now().Add(c.ttl),
	}
	c.mu.Unlock()
}

// MinFreeCacheSizeMB is the smallest freecache size that still stores a
// rendered chart; freecache refuses entries above 1/1024 of its size.
const MinFreeCacheSizeMB = 16

// FreeCacheRenderCache keeps rendered charts in a fixed-size freecache
// segment so long-running servers do not grow without bound.
type FreeCacheRenderCache struct {
	cache     *freecache.Cache
	ttl       int
	telemetry Telemetry
}

// NewFreeCacheRenderCache allocates sizeMB megabytes. Entries freecache
// refuses are still returned and recorded as
// "dashboard.render_cache.store_error".
func NewFreeCacheRenderCache(sizeMB int, ttl time.Duration, telemetry Telemetry) *FreeCacheRenderCache {
	return &FreeCacheRenderCache{
		cache:     freecache.NewCache(max(sizeMB, 1) * 1024 * 1024),
		ttl:       max(int(ttl.Seconds()), 1),
		telemetry: normalizeTelemetry(telemetry),
	}
}

// GetOrRender returns the cached HTML or renders and stores it.
func (c *FreeCacheRenderCache) GetOrRender(key string, render func() (string, error)) (string, error) {
	if val, err := c.cache.Get([]byte(key)); err == nil {
		return string(val), nil
	}
	html, err := render()
	if err != nil {
		return "", err
	}
	if err := c.cache.Set([]byte(key), []byte(html), c.ttl); err != nil {
		c.telemetry.Record(context.Background(), "dashboard.render_cache.store_error", map[string]any{
			"key":   key,
			"bytes": len(html),
			"error": err.Error(),
		})
	}
	return html, nil
}

// EntryCount reports the number of live entries.
func (c *FreeCacheRenderCache) EntryCount() int64 {
	return c.cache.EntryCount()
}

// configHash returns a deterministic hash for any JSON-encodable value.
func configHash(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "invalid"
	}
	if string(b) == "null" || string(b) == "{}" {
		return "empty"
	}
	sum := sha1.Sum(b)
	return hex.EncodeToString(sum[:])
}
