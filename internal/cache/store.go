package cache

import (
	"context"
	"time"
)

// Store is the durable key/value storage behind per-user notification collections.
// Values are opaque byte slices (JSON documents in practice); a zero ttl never expires.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

// Purger is implemented by stores that can drop expired entries in bulk.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
