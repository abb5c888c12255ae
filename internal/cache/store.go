package cache

import (
	"context"
	"time"
)

// Store is the byte-level backend behind AccessResolver. Get reports found=false for
// missing and expired keys alike. Backends may ignore ttl in favour of their own expiry.
type Store interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)
