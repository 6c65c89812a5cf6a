// Package storage provides the durable backends behind the pipeline:
// the image description cache and the question bank.
//
// Information Hiding:
// - Cache key layout and TTL handling stay behind DescriptionCache
// - Question row encoding and schema stay behind the bank implementations
// - All implementations are safe for concurrent use
package storage

import (
	"context"
	"sync"
	"time"
)

// DescriptionCache stores generated image descriptions keyed by cache key.
type DescriptionCache interface {
	// BatchGet returns the cached values for the given keys. Missing keys
	// are simply absent from the result map.
	BatchGet(ctx context.Context, keys []string) (map[string]string, error)

	// Set stores a value with the given TTL. A zero TTL means no expiry.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

type memoryCacheEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is an in-process DescriptionCache for tests and single-node
// runs without redis.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryCacheEntry
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryCacheEntry)}
}

// BatchGet returns the unexpired values for the given keys.
func (c *MemoryCache) BatchGet(_ context.Context, keys []string) (map[string]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	out := make(map[string]string)
	for _, key := range keys {
		entry, ok := c.entries[key]
		if !ok {
			continue
		}
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(c.entries, key)
			continue
		}
		out[key] = entry.value
	}
	return out, nil
}

// Set stores a value with the given TTL.
func (c *MemoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry := memoryCacheEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}

// Verify implementations satisfy DescriptionCache
var _ DescriptionCache = (*MemoryCache)(nil)
