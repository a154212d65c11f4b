package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	rl := NewRateLimiter(client, 3, nil)
	fixed := time.Date(2026, 3, 2, 10, 0, 5, 0, time.UTC)
	rl.now = func() time.Time { return fixed }

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		assert.True(t, rl.Allow(ctx, "10.0.0.1"), "request %d", i+1)
	}
	assert.False(t, rl.Allow(ctx, "10.0.0.1"))
	assert.True(t, rl.Allow(ctx, "10.0.0.2"), "other clients have their own window")

	fixed = fixed.Add(time.Minute)
	assert.True(t, rl.Allow(ctx, "10.0.0.1"), "next window resets the count")
}

func TestRateLimiter_FallsBackWhenRedisDown(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	rl := NewRateLimiter(client, 2, nil)
	ctx := context.Background()
	assert.True(t, rl.Allow(ctx, "ip"))
	assert.True(t, rl.Allow(ctx, "ip"))
	assert.False(t, rl.Allow(ctx, "ip"))
}

func TestRateLimiter_LocalRefills(t *testing.T) {
	rl := NewRateLimiter(nil, 60, nil)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	for i := 0; i < 60; i++ {
		require.True(t, rl.Allow(context.Background(), "ip"))
	}
	assert.False(t, rl.Allow(context.Background(), "ip"))

	now = now.Add(time.Second)
	assert.True(t, rl.Allow(context.Background(), "ip"))
}

func TestRateLimitMiddleware(t *testing.T) {
	rl := NewRateLimiter(nil, 1, nil)
	handler := RateLimit(rl)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/quotes", nil)
	req.RemoteAddr = "192.0.2.1:5555"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimiter_NilAllows(t *testing.T) {
	var rl *RateLimiter
	assert.True(t, rl.Allow(context.Background(), "ip"))
}
