// Package cache stores reconciliation artifacts keyed by document content.
//
// # Backends
//
//   - [NullCache]: never stores; the default for library use
//   - [FileCache]: JSON entries under a directory, for the CLI
//   - [MemoryCache]: bounded in-process map, for a single serve instance
//   - [RedisCache]: a shared Redis instance, for the HTTP host
//
// # Keys
//
// A [Keyer] derives keys from the document hash, so an edited document never
// hits entries of its previous revision. [ScopedKeyer] prefixes every key for
// namespace isolation.
//
//	keyer := cache.NewDefaultKeyer()
//	key := keyer.ArtifactKey(cache.Hash(docJSON), cache.ArtifactKeyOpts{Step: 3, Format: "svg"})
package cache

import (
	"context"
	"time"
)

// TTL values for the cached entry kinds.
const (
	TTLDocument = 7 * 24 * time.Hour
	TTLArtifact = 30 * 24 * time.Hour
)

// Cache is a byte store with per-entry expiry. Implementations must be safe
// for concurrent use. A miss is reported by ok == false with a nil error.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
