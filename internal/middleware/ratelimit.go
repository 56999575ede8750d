package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const tooManyRequestsBody = `{"error":"Too many requests","message":"Zu viele Versuche. Bitte warte kurz."}`

// RateLimiter limits requests per client IP over a sliding window kept in
// a Redis sorted set. Rejected attempts still count, so a client hammering
// the login endpoint stays locked out until it backs off.
type RateLimiter struct {
	client  redis.Cmdable
	scope   string
	maxReqs int
	window  time.Duration
}

// NewRateLimiter allows maxReqs per windowSec seconds per IP. scope
// namespaces the Redis keys so several limiters can share one instance.
func NewRateLimiter(client redis.Cmdable, scope string, maxReqs, windowSec int) *RateLimiter {
	return &RateLimiter{
		client:  client,
		scope:   scope,
		maxReqs: maxReqs,
		window:  time.Duration(windowSec) * time.Second,
	}
}

// Middleware enforces the limit. Redis errors let the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)

		allowed, err := rl.allow(r.Context(), "ratelimit:"+rl.scope+":"+ip)
		if err != nil {
			slog.Warn("rate limiter: redis error, failing open", "error", err, "scope", rl.scope, "ip", ip)
			next.ServeHTTP(w, r)
			return
		}

		if !allowed {
			w.Header().Set("Retry-After", strconv.Itoa(int(rl.window.Seconds())))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(tooManyRequestsBody))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) allow(ctx context.Context, key string) (bool, error) {
	now := time.Now()

	pipe := rl.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "-inf", strconv.FormatInt(now.Add(-rl.window).UnixMilli(), 10))
	countCmd := pipe.ZCard(ctx, key)
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixMilli()), Member: fmt.Sprint(now.UnixNano())})
	pipe.Expire(ctx, key, rl.window+time.Second)

	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return countCmd.Val() < int64(rl.maxReqs), nil
}

// clientIP prefers the first X-Forwarded-For hop, as set by the reverse
// proxy in front of the API.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
