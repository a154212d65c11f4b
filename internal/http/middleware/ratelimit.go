package middleware

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/text2toss/junk-removal-api/internal/http/httpjson"
	"github.com/text2toss/junk-removal-api/pkg/logging"
	"golang.org/x/time/rate"
)

const rateLimitKeyPrefix = "text2toss:ratelimit:"

// RateLimiter allows perMinute requests per client. With Redis the count is a
// fixed one-minute window shared across instances; without Redis, or when
// Redis errors, each process falls back to its own token buckets.
type RateLimiter struct {
	redis     *redis.Client
	perMinute int
	logger    *logging.Logger
	now       func() time.Time

	mu      sync.Mutex
	local   map[string]*localLimiter
	sweepAt time.Time
}

type localLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter builds a limiter. client may be nil.
func NewRateLimiter(client *redis.Client, perMinute int, logger *logging.Logger) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 30
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RateLimiter{
		redis:     client,
		perMinute: perMinute,
		logger:    logger,
		now:       time.Now,
		local:     make(map[string]*localLimiter),
	}
}

// Allow reports whether the client identified by key may proceed.
func (rl *RateLimiter) Allow(ctx context.Context, key string) bool {
	if rl == nil {
		return true
	}
	if rl.redis != nil {
		allowed, err := rl.allowRedis(ctx, key)
		if err == nil {
			return allowed
		}
		rl.logger.Warn("rate limit redis unavailable; using local limiter", "error", err)
	}
	return rl.allowLocal(key)
}

func (rl *RateLimiter) allowRedis(ctx context.Context, key string) (bool, error) {
	window := rl.now().UTC().Unix() / 60
	redisKey := fmt.Sprintf("%s%s:%d", rateLimitKeyPrefix, key, window)

	pipe := rl.redis.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.Expire(ctx, redisKey, 2*time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return incr.Val() <= int64(rl.perMinute), nil
}

func (rl *RateLimiter) allowLocal(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.After(rl.sweepAt) {
		cutoff := now.Add(-10 * time.Minute)
		for k, l := range rl.local {
			if l.lastSeen.Before(cutoff) {
				delete(rl.local, k)
			}
		}
		rl.sweepAt = now.Add(5 * time.Minute)
	}

	l, ok := rl.local[key]
	if !ok {
		l = &localLimiter{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rl.perMinute)), rl.perMinute)}
		rl.local[key] = l
	}
	l.lastSeen = now
	return l.limiter.AllowN(now, 1)
}

// RateLimit rejects requests over the limit with 429 and a Retry-After hint.
func RateLimit(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(r.Context(), clientIP(r)) {
				w.Header().Set("Retry-After", strconv.Itoa(60))
				httpjson.Error(w, http.StatusTooManyRequests, "rate limit exceeded, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP prefers X-Real-Ip, which chi's RealIP middleware sets.
func clientIP(r *http.Request) string {
	if xri := r.Header.Get("X-Real-Ip"); xri != "" {
		return xri
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
