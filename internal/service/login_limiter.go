package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brforum/forum-backend/internal/observability"
)

// LoginLimiter throttles authentication attempts per login so a scripted
// password run gets cut off after a handful of tries.
type LoginLimiter interface {
	Allow(ctx context.Context, login string) bool
}

// RedisLoginLimiter counts attempts in fixed one-minute windows. The counter
// key is set atomically with its expiry so an interrupted attempt cannot leave
// a window that never closes.
type RedisLoginLimiter struct {
	client  redis.UniversalClient
	perMin  int
	logger  *slog.Logger
	nowFunc func() time.Time
}

var loginWindowScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

func NewRedisLoginLimiter(client redis.UniversalClient, perMin int, logger *slog.Logger) *RedisLoginLimiter {
	return &RedisLoginLimiter{client: client, perMin: perMin, logger: logger, nowFunc: time.Now}
}

// Allow reports whether another attempt for login may proceed. Redis being
// unreachable fails open: losing throttling is better than locking every
// user out.
func (l *RedisLoginLimiter) Allow(ctx context.Context, login string) bool {
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return true
	}

	window := l.nowFunc().Unix() / 60
	key := fmt.Sprintf("login_window:%s:%d", login, window)

	count, err := loginWindowScript.Run(ctx, l.client, []string{key}, time.Minute.Milliseconds()).Int()
	if err != nil {
		l.logger.WarnContext(ctx, "login limiter unavailable, failing open", "error", err)
		return true
	}
	if count > l.perMin {
		observability.RecordLoginThrottled(ctx)
		return false
	}
	return true
}
