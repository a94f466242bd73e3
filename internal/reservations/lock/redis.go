package lock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still carries the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

type RedisLocker struct {
	client redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
}

func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{client: client, ttl: ttl, wait: wait}
}

func (r *RedisLocker) Acquire(ctx context.Context, spaceID string) (*Lease, error) {
	key := Key(spaceID)
	token := uuid.NewString()

	err := retryUntil(ctx, r.wait, func(ctx context.Context) (bool, error) {
		return r.client.SetNX(ctx, key, token, r.ttl).Result()
	})
	if err != nil {
		return nil, err
	}

	return NewLease(spaceID, token, func(ctx context.Context) error {
		return releaseScript.Run(ctx, r.client, []string{key}, token).Err()
	}), nil
}
