// Package ratelimit is a fixed-window flood limiter with counters in Redis,
// bukan map in-process, supaya tetap benar saat API jalan lebih dari satu
// instance.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-sambatan-pool.git/internal/redisx"
	"github.com/redis/go-redis/v9"
)

type Limiter struct {
	RDB    *redis.Client
	Limit  int
	Window time.Duration
}

// Allow increments the caller's counter for the current window and reports
// whether the action is still under the limit. Redis down = allow; limiter
// pelindung spam, bukan gerbang kebenaran.
func (l *Limiter) Allow(ctx context.Context, action, userID string) bool {
	if l == nil || l.RDB == nil || l.Limit <= 0 || l.Window <= 0 {
		return true
	}
	window := time.Now().Unix() / int64(l.Window.Seconds())
	key := fmt.Sprintf(redisx.KeyRateLimit, action, userID, window)

	pipe := l.RDB.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, l.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return true
	}
	return incr.Val() <= int64(l.Limit)
}
