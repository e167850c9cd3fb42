package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLoginLimiterForTest(t *testing.T, perMin int) (*RedisLoginLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisLoginLimiter(client, perMin, discardLogger()), mr
}

func TestLoginLimiterAllowsWithinWindow(t *testing.T) {
	limiter, _ := newLoginLimiterForTest(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !limiter.Allow(ctx, "bob") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow(ctx, "bob") {
		t.Fatal("fourth attempt in the window should be throttled")
	}
}

func TestLoginLimiterIsPerLogin(t *testing.T) {
	limiter, _ := newLoginLimiterForTest(t, 1)
	ctx := context.Background()

	if !limiter.Allow(ctx, "bob") {
		t.Fatal("first attempt for bob should be allowed")
	}
	if !limiter.Allow(ctx, "carol") {
		t.Fatal("carol's window is independent of bob's")
	}
	if limiter.Allow(ctx, "BOB ") {
		t.Fatal("login normalization should fold BOB into bob's window")
	}
}

func TestLoginLimiterWindowResets(t *testing.T) {
	limiter, _ := newLoginLimiterForTest(t, 1)
	ctx := context.Background()

	base := time.Date(2026, 8, 28, 12, 0, 30, 0, time.UTC)
	limiter.nowFunc = func() time.Time { return base }

	if !limiter.Allow(ctx, "bob") {
		t.Fatal("first attempt should be allowed")
	}
	if limiter.Allow(ctx, "bob") {
		t.Fatal("second attempt in the same minute should be throttled")
	}

	limiter.nowFunc = func() time.Time { return base.Add(time.Minute) }
	if !limiter.Allow(ctx, "bob") {
		t.Fatal("next minute starts a fresh window")
	}
}

func TestLoginLimiterFailsOpenWithoutRedis(t *testing.T) {
	limiter, mr := newLoginLimiterForTest(t, 1)
	mr.Close()

	if !limiter.Allow(context.Background(), "bob") {
		t.Fatal("an unreachable limiter must not lock users out")
	}
}

func TestLoginLimiterIgnoresEmptyLogin(t *testing.T) {
	limiter, _ := newLoginLimiterForTest(t, 1)

	for i := 0; i < 5; i++ {
		if !limiter.Allow(context.Background(), "   ") {
			t.Fatal("blank logins are not throttled, validation rejects them first")
		}
	}
}
