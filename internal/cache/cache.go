// Package cache provides caching for lookup outcomes and dashboard
// queries, with Redis and in-process backends.
package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Cache interface for caching operations
type Cache interface {
	// Get retrieves a value from cache
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in cache with TTL
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from cache
	Delete(ctx context.Context, key string) error

	// DeleteByPattern removes all values matching a pattern (e.g., "cache:stats:*")
	DeleteByPattern(ctx context.Context, pattern string) error

	// Close closes the cache connection
	Close() error
}

// Key prefixes
const (
	// KeyPrefixLookup caches resolved lookups so a repeated person/domain
	// pair spends zero oracle calls.
	KeyPrefixLookup = "enrich:lookup"

	// KeyPrefixStats caches the dashboard statistics payload
	KeyPrefixStats = "enrich:stats"

	// KeyPrefixBatches caches batch listings
	KeyPrefixBatches = "enrich:batches"
)

// TTL configurations
const (
	// TTLLookup keeps resolved lookups for a day. Mailbox churn makes
	// longer caching risky.
	TTLLookup = 24 * time.Hour

	// TTLStats is the TTL for dashboard statistics
	TTLStats = 30 * time.Second

	// TTLBatchList is the TTL for batch listings
	TTLBatchList = 60 * time.Second
)

// LookupKey builds the cache key for one person/domain lookup. Inputs
// are folded so that "John"/"john" hit the same entry.
func LookupKey(firstName, lastName, domain string) string {
	fold := func(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

	return fmt.Sprintf("%s:%s|%s|%s", KeyPrefixLookup, fold(firstName), fold(lastName), fold(domain))
}
