package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker implements Locker with SET NX PX and a token-checked release.
type RedisLocker struct {
	client *redis.Client
	opts   Options
}

// NewRedisLocker constructs a Redis-backed locker.
func NewRedisLocker(client *redis.Client, opts Options) *RedisLocker {
	return &RedisLocker{client: client, opts: opts.withDefaults()}
}

// Acquire sets key to a fresh token, retrying until the wait budget is spent.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (Release, error) {
	token := uuid.NewString()
	deadline := time.Now().Add(l.opts.Wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.opts.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", key, err)
		}
		if ok {
			return func(ctx context.Context) error {
				if err := releaseScript.Run(ctx, l.client, []string{key}, token).Err(); err != nil {
					return fmt.Errorf("release lock %s: %w", key, err)
				}
				return nil
			}, nil
		}
		if !time.Now().Add(l.opts.RetryInterval).Before(deadline) {
			return nil, ErrNotAcquired
		}

		timer := time.NewTimer(l.opts.RetryInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
