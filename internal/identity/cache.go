package identity

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultProfileTTL = 10 * time.Minute

// ProfileCache is a Redis lookaside cache in front of a Source. The
// contact list hits the provider once per contact per TTL instead of
// on every render.
type ProfileCache struct {
	client *redis.Client
	source Source
	ttl    time.Duration
}

// NewProfileCache builds a Redis-backed cache around source.
func NewProfileCache(addr, password string, ttl time.Duration, source Source) *ProfileCache {
	if ttl <= 0 {
		ttl = defaultProfileTTL
	}
	return &ProfileCache{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		source: source,
		ttl:    ttl,
	}
}

// Profile returns the cached profile, falling through to the source on
// miss. Source errors are returned uncached so a transient provider
// outage does not poison the cache.
func (c *ProfileCache) Profile(ctx context.Context, identity string) (Profile, error) {
	key := "profile:" + identity
	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var p Profile
		if jsonErr := json.Unmarshal([]byte(raw), &p); jsonErr == nil {
			return p, nil
		}
		// Unreadable entry, refetch below.
	} else if err != redis.Nil {
		// Redis being down degrades to direct provider calls.
		p, srcErr := c.source.Profile(ctx, identity)
		return p, srcErr
	}
	p, err := c.source.Profile(ctx, identity)
	if err != nil {
		return Profile{}, err
	}
	if data, jsonErr := json.Marshal(p); jsonErr == nil {
		_ = c.client.Set(ctx, key, data, c.ttl).Err()
	}
	return p, nil
}
