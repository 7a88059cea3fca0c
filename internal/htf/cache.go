package htf

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// cacheTTL is the one-hour whole-context cache lifetime.
const cacheTTL = time.Hour

// cachedSnapshot is the JSON-serializable projection of a Snapshot; the
// trend hysteresis fields (pendingCandidate etc.) live in Context's own
// in-process trendState and are not cached here - only the derived levels
// and the 4h structural trend candidate are, so a cache hit still runs the
// real 4h rule rather than the level-geometry fallback (proximity is
// recomputed live on every query).
type cachedSnapshot struct {
	Levels  []Level    `json:"levels"`
	Trend4h TrendLabel `json:"trend_4h"`
	Have4h  bool       `json:"have_4h"`
}

// RedisCache is a thin Redis-backed cache for the per-instrument level set,
// generalizing internal/metrics's RedisMetrics wrapper shape to HTF's own
// key/TTL needs.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache wraps an existing Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func cacheKey(instrument string) string {
	return "htf:snapshot:" + instrument
}

// Get returns the cached levels/trend for instrument, or ok=false on a miss
// or any Redis error (treated as Stale, never fatal).
func (c *RedisCache) Get(ctx context.Context, instrument string) (cachedSnapshot, bool) {
	if c == nil || c.client == nil {
		return cachedSnapshot{}, false
	}
	raw, err := c.client.Get(ctx, cacheKey(instrument)).Result()
	if err != nil {
		return cachedSnapshot{}, false
	}
	var cs cachedSnapshot
	if err := json.Unmarshal([]byte(raw), &cs); err != nil {
		return cachedSnapshot{}, false
	}
	return cs, true
}

// Set stores the levels/trend for instrument with the one-hour TTL.
func (c *RedisCache) Set(ctx context.Context, instrument string, cs cachedSnapshot) error {
	if c == nil || c.client == nil {
		return nil
	}
	raw, err := json.Marshal(cs)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(instrument), raw, cacheTTL).Err()
}
