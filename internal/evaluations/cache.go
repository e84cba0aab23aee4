package evaluations

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores recent analytics aggregates in Redis so dashboard reads
// and the warmup job share one result set.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a cache with the given TTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) get(ctx context.Context, key string, dst any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dst) == nil
}

func (c *Cache) set(ctx context.Context, key string, v any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, key, raw, c.ttl)
}

// Window boundaries are rounded to the day so ad-hoc reads hit the
// entries the warmup job populated.
func teamAnalyticsKey(w Window) string {
	return "analytics:teams:" + w.From.Format("2006-01-02") + ":" + w.To.Format("2006-01-02")
}

func salespersonAnalyticsKey(w Window, teamID *int64) string {
	team := "all"
	if teamID != nil {
		team = strconv.FormatInt(*teamID, 10)
	}
	return "analytics:salespeople:" + team + ":" + w.From.Format("2006-01-02") + ":" + w.To.Format("2006-01-02")
}
