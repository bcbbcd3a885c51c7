package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// PageKey generates a cache key for one page's analysis. Parts should cover
// everything the analysis depends on (settings, hint, page index, text).
func PageKey(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return "numscan:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the cache described by the arguments: memory only when dir is
// empty, memory in front of disk otherwise.
func New(dir string, memoryTTL, diskTTL time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, dir, diskTTL)
}
