package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether another request for key fits in the window.
type Limiter interface {
	Allow(ctx context.Context, key string) (bool, error)
}

// Memory is a per-process sliding-window limiter.
type Memory struct {
	window time.Duration
	max    int
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string][]time.Time
	lastSweep time.Time
}

// NewMemory allows max requests per key within any window-long interval.
func NewMemory(window time.Duration, max int, now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{window: window, max: max, now: now, buckets: make(map[string][]time.Time)}
}

func (m *Memory) Allow(_ context.Context, key string) (bool, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	if now.Sub(m.lastSweep) >= m.window {
		m.sweep(now)
	}

	hits := m.buckets[key]
	keep := 0
	for _, at := range hits {
		if now.Sub(at) <= m.window {
			hits[keep] = at
			keep++
		}
	}
	hits = hits[:keep]
	if len(hits) >= m.max {
		m.buckets[key] = hits
		return false, nil
	}
	m.buckets[key] = append(hits, now)
	return true, nil
}

// sweep drops keys whose newest hit has left the window. Caller holds mu.
func (m *Memory) sweep(now time.Time) {
	for key, hits := range m.buckets {
		if len(hits) == 0 || now.Sub(hits[len(hits)-1]) > m.window {
			delete(m.buckets, key)
		}
	}
	m.lastSweep = now
}

// Redis is a fixed-window limiter shared by every process using the same
// Redis database.
type Redis struct {
	client *redis.Client
	window time.Duration
	max    int
	prefix string
}

// NewRedis builds a limiter storing counters under prefix.
func NewRedis(client *redis.Client, window time.Duration, max int, prefix string) *Redis {
	if prefix == "" {
		prefix = "ratelimit:chat:"
	}
	return &Redis{client: client, window: window, max: max, prefix: prefix}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := r.prefix + key
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, k)
		pipe.ExpireNX(ctx, k, r.window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("rate limit %s: %w", key, err)
	}
	return incr.Val() <= int64(r.max), nil
}

// Fallback consults primary and degrades to secondary when primary errors.
type Fallback struct {
	primary   Limiter
	secondary Limiter
	onError   func(error)
}

// NewFallback wraps primary with an in-process secondary limiter.
func NewFallback(primary, secondary Limiter, onError func(error)) *Fallback {
	return &Fallback{primary: primary, secondary: secondary, onError: onError}
}

func (f *Fallback) Allow(ctx context.Context, key string) (bool, error) {
	ok, err := f.primary.Allow(ctx, key)
	if err == nil {
		return ok, nil
	}
	if f.onError != nil {
		f.onError(err)
	}
	return f.secondary.Allow(ctx, key)
}
