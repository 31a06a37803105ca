package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock is a SET NX PX lock with a per-acquire token.
type RedisLock struct {
	client *redis.Client
	Key    string
	TTL    time.Duration
}

func NewRedisLock(client *redis.Client, key string, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisLock{client: client, Key: key, TTL: ttl}
}

func (l *RedisLock) Acquire(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.Key, token, l.TTL).Result()
	if err != nil {
		return nil, fmt.Errorf("redis lock %s: %w", l.Key, err)
	}
	if !ok {
		return nil, fmt.Errorf("redis lock %s: %w", l.Key, ErrLocked)
	}
	done := false
	return func() {
		if done {
			return
		}
		done = true
		// Release must not depend on the caller's context, which may be cancelled.
		rctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(rctx, l.client, []string{l.Key}, token)
	}, nil
}

