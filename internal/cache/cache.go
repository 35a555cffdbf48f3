package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for run-scoped caching. Fetchers use it to
// avoid re-downloading listing pages and re-resolving EDGAR lookups
// inside one batch.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key generates a cache key from a source prefix and URL.
func Key(source, url string) string {
	hash := sha256.Sum256([]byte(url))
	return "tradefeed:v1:" + source + ":" + hex.EncodeToString(hash[:])
}
