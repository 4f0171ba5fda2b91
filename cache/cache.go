// Package cache stores agent results keyed by the request that produced
// them, so identical prompts are answered once.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores string results by key.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)

	// Set stores value under key. A zero ttl keeps the value until evicted.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// Key derives a cache key from the parts of a request.
func Key(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
