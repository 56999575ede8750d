package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	burstKeyPrefix = "ai:burst:"
	burstWindow    = time.Minute
)

// Trims the window, then admits the call only while the set holds fewer
// than ARGV[3] members. Returns the count before admission and 1/0.
var burstScript = redis.NewScript(`
redis.call("ZREMRANGEBYSCORE", KEYS[1], "-inf", ARGV[1])
local n = redis.call("ZCARD", KEYS[1])
if n >= tonumber(ARGV[3]) then
	return {n, 0}
end
redis.call("ZADD", KEYS[1], ARGV[2], ARGV[4])
redis.call("PEXPIRE", KEYS[1], ARGV[5])
return {n, 1}
`)

// BurstLimiter caps AI calls per user over a sliding one-minute window.
// Each admitted call is a member of a Redis sorted set scored by its
// timestamp in milliseconds.
type BurstLimiter struct {
	rdb redis.Cmdable
	now func() time.Time
}

func NewBurstLimiter(rdb redis.Cmdable) *BurstLimiter {
	return &BurstLimiter{rdb: rdb, now: time.Now}
}

func burstKey(userID uuid.UUID) string {
	return burstKeyPrefix + userID.String()
}

// Allow admits one call for userID unless limit calls already landed in
// the last minute. Denied calls are not counted.
func (l *BurstLimiter) Allow(ctx context.Context, userID uuid.UUID, limit int) (bool, error) {
	now := l.now()
	windowStart := now.Add(-burstWindow).UnixMilli()
	member := fmt.Sprintf("%d-%s", now.UnixNano(), uuid.NewString()[:8])

	res, err := burstScript.Run(ctx, l.rdb, []string{burstKey(userID)},
		windowStart, now.UnixMilli(), limit, member, (burstWindow + 30*time.Second).Milliseconds(),
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("burst limiter: %w", err)
	}
	if len(res) != 2 {
		return false, fmt.Errorf("burst limiter: unexpected reply %v", res)
	}
	return res[1] == 1, nil
}

// Usage counts the calls admitted during the last minute.
func (l *BurstLimiter) Usage(ctx context.Context, userID uuid.UUID) (int, error) {
	now := l.now()
	n, err := l.rdb.ZCount(ctx, burstKey(userID),
		fmt.Sprint(now.Add(-burstWindow).UnixMilli()+1), fmt.Sprint(now.UnixMilli()),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("burst usage: %w", err)
	}
	return int(n), nil
}
