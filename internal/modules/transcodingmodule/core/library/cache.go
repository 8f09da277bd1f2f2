package library

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mantonx/streamin/internal/modules/transcodingmodule/core/ffmpeg"
)

type cacheEntry struct {
	probe   *ffmpeg.MediaProbe
	size    int64
	modTime time.Time
}

// ProbeCache keeps probe results keyed by path. An entry is only served
// while the file's size and modification time are unchanged.
type ProbeCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// NewProbeCache creates an empty cache.
func NewProbeCache() *ProbeCache {
	return &ProbeCache{entries: make(map[string]cacheEntry)}
}

// Get returns the cached probe if fi still matches it.
func (c *ProbeCache) Get(path string, fi os.FileInfo) (*ffmpeg.MediaProbe, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[path]
	if !ok || e.size != fi.Size() || !e.modTime.Equal(fi.ModTime()) {
		return nil, false
	}
	return e.probe, true
}

// Put stores a probe for path.
func (c *ProbeCache) Put(path string, fi os.FileInfo, probe *ffmpeg.MediaProbe) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[path] = cacheEntry{probe: probe, size: fi.Size(), modTime: fi.ModTime()}
}

// Evict drops path and anything cached beneath it.
func (c *ProbeCache) Evict(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	prefix := path + string(filepath.Separator)
	for key := range c.entries {
		if key == path || strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *ProbeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
