package app

import (
	"strings"

	"github.com/charlesng35/dbpanel/internal/cache"
)

const (
	AccessCacheMemory = "memory"
	AccessCacheRedis  = "redis"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// BackendName normalises the access cache backend, defaulting to memory.
func (c AccessCacheConfig) BackendName() string {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case AccessCacheRedis:
		return AccessCacheRedis
	default:
		return AccessCacheMemory
	}
}

// UsesRedis reports whether the enabled access cache is backed by redis.
func (c AccessCacheConfig) UsesRedis() bool {
	return c.Enabled && c.BackendName() == AccessCacheRedis
}
