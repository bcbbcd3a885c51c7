package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DiskCache implements persistent disk-based caching
type DiskCache struct {
	dir string
	ttl time.Duration
}

// NewDiskCache creates a new disk cache
func NewDiskCache(dir string, ttl time.Duration) *DiskCache {
	return &DiskCache{
		dir: dir,
		ttl: ttl,
	}
}

type cacheEntry struct {
	Data      []byte    `json:"data"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Get retrieves a value from the disk cache
func (c *DiskCache) Get(key string) ([]byte, bool) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}

	var entry cacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, false
	}

	// Check expiration
	if time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false
	}

	return entry.Data, true
}

// Set stores a value in the disk cache. The entry is written to a temporary
// file first so concurrent readers never see a partial entry.
func (c *DiskCache) Set(key string, value []byte, ttl time.Duration) error {
	if ttl == 0 {
		ttl = c.ttl
	}

	data, err := json.Marshal(cacheEntry{
		Data:      value,
		ExpiresAt: time.Now().Add(ttl),
	})
	if err != nil {
		return eris.Wrap(err, "marshal entry")
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return eris.Wrap(err, "create cache dir")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".entry-*")
	if err != nil {
		return eris.Wrap(err, "create temp entry")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return eris.Wrap(err, "write cache file")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "close cache file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrap(err, "commit cache file")
	}

	return nil
}

// Delete removes a value from the disk cache
func (c *DiskCache) Delete(key string) error {
	path := c.path(key)
	return os.Remove(path)
}

// Clear removes all cached files
func (c *DiskCache) Clear() error {
	return os.RemoveAll(c.dir)
}

// path generates the file path for a cache key, sharded by the first two
// characters of the digest to keep directories small.
func (c *DiskCache) path(key string) string {
	name := strings.ReplaceAll(key, ":", "_")
	digest := name[strings.LastIndex(name, "_")+1:]
	shard := "00"
	if len(digest) >= 2 {
		shard = digest[:2]
	}
	return filepath.Join(c.dir, shard, name+".cache")
}
