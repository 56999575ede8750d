package resurfacing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker serialises passes across API instances.
type Locker interface {
	// TryLock returns ok=false when another pass holds the lock.
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

const lockKey = "resurfacing:pass"

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

// RedisLocker holds lockKey with SET NX for at most ttl.
type RedisLocker struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedisLocker(rdb redis.Cmdable, ttl time.Duration) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl}
}

func (l *RedisLocker) TryLock(ctx context.Context) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, lockKey, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("acquiring pass lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	unlock := func() {
		// Only delete our own token; the TTL may have handed the lock on.
		ctx := context.WithoutCancel(ctx)
		if err := releaseScript.Run(ctx, l.rdb, []string{lockKey}, token).Err(); err != nil {
			slog.Warn("resurfacing: releasing pass lock", "error", err)
		}
	}
	return unlock, true, nil
}
