package alert

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// DefaultCooldownPeriod is the minimum time between two fan-outs for the same key.
const DefaultCooldownPeriod = 30 * time.Minute

// Cooldown enforces the minimum interval between fan-outs.
type Cooldown interface {
	// Claim atomically starts a cooldown of length d for key. It returns false when key is
	// already cooling down, in which case nothing changes.
	Claim(ctx context.Context, key string, d time.Duration) (bool, error)
	// Remaining reports how long key stays in cooldown, or zero when it is not cooling down.
	Remaining(ctx context.Context, key string) (time.Duration, error)
}

// LocalCooldown keeps cooldowns in process memory.
type LocalCooldown struct {
	cache *gocache.Cache
}

// NewLocalCooldown creates an in-memory cooldown. Expired entries are swept every cleanup interval.
func NewLocalCooldown(cleanup time.Duration) *LocalCooldown {
	return &LocalCooldown{cache: gocache.New(DefaultCooldownPeriod, cleanup)}
}

// Claim implements Cooldown. go-cache's Add fails when an unexpired item exists, which makes
// check-and-set a single locked operation.
func (c *LocalCooldown) Claim(ctx context.Context, key string, d time.Duration) (bool, error) {
	if err := c.cache.Add(key, time.Now(), d); err != nil {
		return false, nil
	}
	return true, nil
}

// Remaining implements Cooldown.
func (c *LocalCooldown) Remaining(ctx context.Context, key string) (time.Duration, error) {
	_, exp, ok := c.cache.GetWithExpiration(key)
	if !ok {
		return 0, nil
	}
	return max(time.Until(exp), 0), nil
}

// RedisClient is the subset of go-redis used by RedisCooldown.
type RedisClient interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
}

// RedisCooldown shares cooldowns between replicas through Redis.
type RedisCooldown struct {
	client RedisClient
	prefix string
}

// NewRedisCooldown creates a cooldown storing keys as prefix+key.
func NewRedisCooldown(client RedisClient, prefix string) *RedisCooldown {
	return &RedisCooldown{client: client, prefix: prefix}
}

// Claim implements Cooldown with SET NX PX.
func (c *RedisCooldown) Claim(ctx context.Context, key string, d time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.prefix+key, time.Now().Unix(), d).Result()
	if err != nil {
		return false, fmt.Errorf("claiming cooldown %q: %w", key, err)
	}
	return ok, nil
}

// Remaining implements Cooldown using PTTL.
func (c *RedisCooldown) Remaining(ctx context.Context, key string) (time.Duration, error) {
	d, err := c.client.PTTL(ctx, c.prefix+key).Result()
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, nil
	}
	return d, nil
}
