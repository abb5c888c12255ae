package cache

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultMemorySize = 10000
	defaultMemoryTTL  = time.Minute
)

// MemoryStore is an in-process Store bounded by entry count. Every entry shares the TTL
// given at construction; the per-call ttl argument is ignored.
type MemoryStore struct {
	cache *lru.LRU[string, []byte]
}

// NewMemoryStore constructs an LRU store holding at most size entries for ttl each.
func NewMemoryStore(size int, ttl time.Duration) *MemoryStore {
	if size <= 0 {
		size = defaultMemorySize
	}
	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}
	return &MemoryStore{cache: lru.NewLRU[string, []byte](size, nil, ttl)}
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.cache.Add(key, stored)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := s.cache.Get(key)
	if !ok {
		return nil, false, nil
	}
	return value, true, nil
}

func (s *MemoryStore) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		s.cache.Remove(key)
	}
	return nil
}

// Len reports the number of live entries.
func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
