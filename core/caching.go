package core

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"time"

	"github.com/huangsam/covmap/core/gcov"
	"github.com/huangsam/covmap/internal/contract"
)

// currentCacheVersion defines the version of the cache schema
const currentCacheVersion = 2

// cacheTTL is how long a cached document stays valid.
const cacheTTL = 7 * 24 * time.Hour

// loadDocument reads and parses one coverage document, consulting the document cache when present.
// The boolean result reports whether the parsed document came from the cache.
func loadDocument(store contract.CacheStore, path string) (*gcov.Document, bool, error) {
	data, err := gcov.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	if store == nil {
		doc, err := gcov.Parse(data)
		return doc, false, err
	}

	key := generateCacheKey(data)

	// Check for cache hit
	if doc := checkCacheHit(store, key); doc != nil {
		return doc, true, nil
	}

	// Cache miss: compute and store
	doc, err := computeAndStore(store, key, data)
	return doc, false, err
}

// checkCacheHit attempts to retrieve and validate a cached document
func checkCacheHit(store contract.CacheStore, key string) *gcov.Document {
	data, version, ts, err := store.Get(key)
	if err != nil {
		return nil // Cache miss
	}

	// Validate version and staleness
	if version == currentCacheVersion {
		entryTimestamp := time.Unix(ts, 0)
		if time.Since(entryTimestamp) <= cacheTTL {
			var doc gcov.Document
			if err := json.Unmarshal(data, &doc); err == nil {
				return &doc // Cache hit
			}
		}
	}

	return nil // Cache miss (stale or version mismatch)
}

// computeAndStore parses the document and stores the result in cache.
// Malformed documents are never cached.
func computeAndStore(store contract.CacheStore, key string, raw []byte) (*gcov.Document, error) {
	doc, err := gcov.Parse(raw)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(doc); err == nil {
		_ = store.Set(key, data, currentCacheVersion, time.Now().Unix())
	}

	return doc, nil
}

// generateCacheKey creates a unique key from the raw document bytes
func generateCacheKey(raw []byte) string {
	return fmt.Sprintf("%x", sha256.Sum256(raw))
}
