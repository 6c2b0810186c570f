// Package ratelimit counts requests per key in fixed windows (Redis) or token
// buckets (in process).
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// Rule is a budget of Limit events per Window.
type Rule struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, rule Rule, key string) (Decision, error)
}

// New returns a Redis limiter when rdb is set, otherwise an in-process one.
func New(rdb *redis.Client, clock clockwork.Clock) Limiter {
	if rdb != nil {
		return NewRedis(rdb, clock)
	}
	return NewMemory(clock)
}

// Redis implements fixed windows with INCR and PEXPIRE so every API instance
// shares one budget.
type Redis struct {
	rdb   redis.Cmdable
	clock clockwork.Clock
}

func NewRedis(rdb redis.Cmdable, clock clockwork.Clock) *Redis {
	return &Redis{rdb: rdb, clock: clock}
}

func (l *Redis) Allow(ctx context.Context, rule Rule, key string) (Decision, error) {
	now := l.clock.Now()
	window := now.UnixMilli() / rule.Window.Milliseconds()
	redisKey := fmt.Sprintf("jbc:rl:%s:%s:%d", rule.Name, key, window)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, rule.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", rule.Name, err)
	}
	count := int(incr.Val())
	if count > rule.Limit {
		end := time.UnixMilli((window + 1) * rule.Window.Milliseconds())
		return Decision{RetryAfter: end.Sub(now)}, nil
	}
	return Decision{Allowed: true, Remaining: rule.Limit - count}, nil
}

const idleExpiry = 10 * time.Minute

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Memory keeps one token bucket per rule and key. Buckets refill evenly over
// the window and start full.
type Memory struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	buckets map[string]*bucket
	sweptAt time.Time
}

func NewMemory(clock clockwork.Clock) *Memory {
	return &Memory{clock: clock, buckets: make(map[string]*bucket), sweptAt: clock.Now()}
}

func (l *Memory) Allow(_ context.Context, rule Rule, key string) (Decision, error) {
	now := l.clock.Now()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.sweep(now, rule.Window)
	id := rule.Name + "|" + key
	b, ok := l.buckets[id]
	if !ok {
		every := rule.Window / time.Duration(rule.Limit)
		b = &bucket{limiter: rate.NewLimiter(rate.Every(every), rule.Limit)}
		l.buckets[id] = b
	}
	b.lastSeen = now

	r := b.limiter.ReserveN(now, 1)
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return Decision{RetryAfter: delay}, nil
	}
	return Decision{Allowed: true, Remaining: int(b.limiter.TokensAt(now))}, nil
}

// sweep drops buckets idle long enough to have refilled.
func (l *Memory) sweep(now time.Time, window time.Duration) {
	if now.Sub(l.sweptAt) < idleExpiry {
		return
	}
	l.sweptAt = now
	ttl := idleExpiry
	if window > ttl {
		ttl = window
	}
	for id, b := range l.buckets {
		if now.Sub(b.lastSeen) > ttl {
			delete(l.buckets, id)
		}
	}
}
