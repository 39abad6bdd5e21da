// Package cache stores raw portal responses so repeated runs over the
// same search window do not hammer the open-data endpoints.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache is the storage contract shared by the memory, disk and layered
// implementations
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from a request URL. The version
// segment lets a format change invalidate old entries wholesale.
func Key(url string) string {
	hash := sha256.Sum256([]byte(url))
	return "vigil:v1:" + hex.EncodeToString(hash[:])
}
