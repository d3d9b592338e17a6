package auth

import (
	"context"
	"time"

	"github.com/eventconnect/backend/pkg/redis"
)

const revokedKeyPrefix = "auth:revoked:"

// RedisRevoker keeps revoked token ids in Redis until the token would have expired.
type RedisRevoker struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisRevoker creates a Redis-backed token revocation list.
func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client, now: time.Now}
}

// Revoke marks the token id as revoked until expiresAt.
func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	return r.client.SetFlag(ctx, revokedKeyPrefix+tokenID, expiresAt.Sub(r.now()))
}

// IsRevoked reports whether the token id was revoked.
func (r *RedisRevoker) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	return r.client.HasFlag(ctx, revokedKeyPrefix+tokenID)
}
