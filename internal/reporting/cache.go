package reporting

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized month groupings in Redis with a TTL. A nil
// Cache disables caching entirely.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a reporting cache around an existing Redis client.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

// GetMonthGroups returns the cached grouping for key, or false on miss.
// Cache failures degrade to a miss; reads never fail the request.
func (c *Cache) GetMonthGroups(ctx context.Context, key string) ([]MonthGroup, bool) {
	if c == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var groups []MonthGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, false
	}
	return groups, true
}

// SetMonthGroups stores the grouping under key, best effort.
func (c *Cache) SetMonthGroups(ctx context.Context, key string, groups []MonthGroup) {
	if c == nil {
		return
	}
	data, err := json.Marshal(groups)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, data, c.ttl).Err()
}

// Invalidate drops all cached groupings for a tenant.
func (c *Cache) Invalidate(ctx context.Context, tenantPrefix string) {
	if c == nil {
		return
	}
	iter := c.client.Scan(ctx, 0, tenantPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		_ = c.client.Del(ctx, iter.Val()).Err()
	}
}
