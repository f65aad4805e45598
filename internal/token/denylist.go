package token

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Denylist records revoked token ids. Logout and refresh rotation revoke
// the old jti; the auth middleware rejects any token whose jti is listed.
type Denylist interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) bool
}

// RedisDenylist stores tombstones in Redis with a TTL equal to the
// remaining validity of the revoked token, so entries expire on their own.
// A nil client disables revocation checks entirely, the same degrade
// policy the cache and rate-limit middleware follow when Redis is down.
type RedisDenylist struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisDenylist(rdb *redis.Client) *RedisDenylist {
	return &RedisDenylist{rdb: rdb, prefix: "revoked:"}
}

func (d *RedisDenylist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if d.rdb == nil || jti == "" {
		return nil
	}
	if ttl <= 0 {
		return nil // already expired, nothing to revoke
	}
	return d.rdb.Set(ctx, d.prefix+jti, 1, ttl).Err()
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, jti string) bool {
	if d.rdb == nil || jti == "" {
		return false
	}
	n, err := d.rdb.Exists(ctx, d.prefix+jti).Result()
	if err != nil {
		return false
	}
	return n > 0
}
