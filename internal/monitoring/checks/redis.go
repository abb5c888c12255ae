package checks

import (
	"context"
	"time"

	"github.com/charlesng35/dbpanel/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger is satisfied by cache.RedisStore.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// AccessCache returns a readiness probe for the shared access cache. With the memory
// backend configured the probe is always up. A redis backend that failed at startup
// leaves client nil and the probe degraded, since resolutions are then cached per process.
func AccessCache(client RedisPinger, redisConfigured bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("access_cache", func(ctx context.Context) monitoring.ProbeResult {
		start := time.Now()
		if !redisConfigured {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "in-process backend"}
		}
		if client == nil {
			return monitoring.ProbeResult{
				Status:  monitoring.StatusDegraded,
				Details: "redis unreachable at startup; using in-process backend",
			}
		}

		probeCtx, cancel := context.WithTimeout(ctx, orDefault(timeout, defaultRedisTimeout))
		defer cancel()

		if err := client.Ping(probeCtx); err != nil {
			return monitoring.ResultFromError("access_cache", err, time.Since(start))
		}
		return monitoring.ProbeResult{
			Status:   monitoring.StatusUp,
			Details:  "redis backend",
			Duration: time.Since(start),
		}
	})
}
