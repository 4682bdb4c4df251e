package api

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisRateCounter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

func incrWithTTL(ctx context.Context, client redisRateCounter, key string, ttl time.Duration) (int64, error) {
	count, err := client.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		_ = client.Expire(ctx, key, ttl).Err()
	}
	return count, nil
}

// hourlyLimiter 按 UTC 小时分桶统计每个用户的调用次数。
type hourlyLimiter struct {
	client redisRateCounter
	scope  string
	limit  int
	now    func() time.Time
}

func newHourlyLimiter(client redisRateCounter, scope string, limit int) *hourlyLimiter {
	if client == nil || limit <= 0 {
		return nil
	}
	return &hourlyLimiter{client: client, scope: scope, limit: limit, now: time.Now}
}

func (l *hourlyLimiter) key(userID uint) string {
	return fmt.Sprintf("rate:%s:%d:%s", l.scope, userID, l.now().UTC().Format("2006010215"))
}

// allow 在计数器不可用时放行，并把错误交给调用方记录。
func (l *hourlyLimiter) allow(ctx context.Context, userID uint) (bool, error) {
	if l == nil {
		return true, nil
	}
	count, err := incrWithTTL(ctx, l.client, l.key(userID), time.Hour)
	if err != nil {
		return true, err
	}
	return count <= int64(l.limit), nil
}
