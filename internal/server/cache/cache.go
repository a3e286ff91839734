// Package cache keeps sanitized profiles in Redis so session checks can skip
// the credential store. The cache is best-effort: any Redis failure is
// logged and treated as a miss.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "gophauth:profile:"

// Entries are hashes: "v" holds the profile's UpdatedAt in unix
// milliseconds and "p" the JSON profile.
const (
	fieldVersion = "v"
	fieldProfile = "p"
)

// setIfNotOlder writes the entry unless the cached one carries a newer
// version. A non-positive ttl leaves the key without expiry.
var setIfNotOlder = redis.NewScript(`
local cur = tonumber(redis.call('HGET', KEYS[1], 'v'))
if cur and cur > tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'p', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

type ProfileCache interface {
	Get(ctx context.Context, accountID string) (*models.Profile, bool)
	// Set stores p unless a newer version (by UpdatedAt) is already cached.
	Set(ctx context.Context, p *models.Profile)
	Invalidate(ctx context.Context, accountID string)
	Close() error
}

// Open returns a Redis-backed cache for url, or a no-op cache when url is
// empty.
func Open(ctx context.Context, url string, ttl time.Duration, logger logging.Logger) (ProfileCache, error) {
	if url == "" {
		return Noop{}, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisCache(rdb, ttl, logger), nil
}

type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger logging.Logger
}

func NewRedisCache(rdb *redis.Client, ttl time.Duration, logger logging.Logger) *RedisCache {
	return &RedisCache{rdb: rdb, ttl: ttl, logger: logger}
}

func key(accountID string) string {
	return keyPrefix + accountID
}

func (c *RedisCache) Get(ctx context.Context, accountID string) (*models.Profile, bool) {
	raw, err := c.rdb.HGet(ctx, key(accountID), fieldProfile).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn(ctx, "profile cache read failed", "account_id", accountID, "error", err)
		}
		return nil, false
	}

	var p models.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		c.logger.Warn(ctx, "profile cache entry corrupt", "account_id", accountID, "error", err)
		c.Invalidate(ctx, accountID)
		return nil, false
	}
	return &p, true
}

func (c *RedisCache) Set(ctx context.Context, p *models.Profile) {
	raw, err := json.Marshal(p)
	if err != nil {
		return
	}
	version := p.UpdatedAt.UnixMilli()
	err = setIfNotOlder.Run(ctx, c.rdb, []string{key(p.ID)}, version, raw, c.ttl.Milliseconds()).Err()
	if err != nil {
		c.logger.Warn(ctx, "profile cache write failed", "account_id", p.ID, "error", err)
	}
}

func (c *RedisCache) Invalidate(ctx context.Context, accountID string) {
	if err := c.rdb.Del(ctx, key(accountID)).Err(); err != nil {
		c.logger.Warn(ctx, "profile cache invalidate failed", "account_id", accountID, "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Noop never stores anything.
type Noop struct{}

func (Noop) Get(context.Context, string) (*models.Profile, bool) { return nil, false }
func (Noop) Set(context.Context, *models.Profile)                {}
func (Noop) Invalidate(context.Context, string)                  {}
func (Noop) Close() error                                        { return nil }
