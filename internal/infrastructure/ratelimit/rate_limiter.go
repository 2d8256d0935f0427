package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	ActionSendMessage  = "send_message"
	ActionCreateThread = "create_thread"
)

// Limiter decides whether key may perform action now. When it may not, the
// returned duration is how long to wait before retrying.
type Limiter interface {
	Allow(ctx context.Context, key, action string) (bool, time.Duration, error)
}

// Limits maps an action to the number of calls allowed per minute.
type Limits map[string]int

const defaultPerMinute = 20

func (l Limits) perMinute(action string) int {
	if n, ok := l[action]; ok && n > 0 {
		return n
	}
	return defaultPerMinute
}

// TokenBucket represents a token bucket for rate limiting
type TokenBucket struct {
	tokens     int
	maxTokens  int
	refillRate int
	refillTime time.Duration
	lastRefill time.Time
	lastUsed   time.Time
	mutex      sync.Mutex
}

// RateLimiter keeps one token bucket per (key, action) in process memory.
type RateLimiter struct {
	buckets map[string]*TokenBucket
	limits  Limits
	mutex   sync.RWMutex
	now     func() time.Time
}

func NewRateLimiter(limits Limits) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*TokenBucket),
		limits:  limits,
		now:     time.Now,
	}
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(maxTokens, refillRate int, refillTime time.Duration, now time.Time) *TokenBucket {
	return &TokenBucket{
		tokens:     maxTokens,
		maxTokens:  maxTokens,
		refillRate: refillRate,
		refillTime: refillTime,
		lastRefill: now,
		lastUsed:   now,
	}
}

func (tb *TokenBucket) take(now time.Time) (bool, time.Duration) {
	tb.mutex.Lock()
	defer tb.mutex.Unlock()

	tb.lastUsed = now
	elapsed := now.Sub(tb.lastRefill)
	tokensToAdd := int(elapsed/tb.refillTime) * tb.refillRate

	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.maxTokens {
			tb.tokens = tb.maxTokens
		}
		tb.lastRefill = tb.lastRefill.Add(time.Duration(tokensToAdd/tb.refillRate) * tb.refillTime)
	}

	if tb.tokens > 0 {
		tb.tokens--
		return true, 0
	}

	return false, tb.lastRefill.Add(tb.refillTime).Sub(now)
}

func (rl *RateLimiter) Allow(ctx context.Context, key, action string) (bool, time.Duration, error) {
	bucketKey := key + ":" + action

	rl.mutex.RLock()
	bucket, exists := rl.buckets[bucketKey]
	rl.mutex.RUnlock()

	if !exists {
		rl.mutex.Lock()
		// Double-check pattern
		if bucket, exists = rl.buckets[bucketKey]; !exists {
			n := rl.limits.perMinute(action)
			bucket = NewTokenBucket(n, 1, time.Minute/time.Duration(n), rl.now())
			rl.buckets[bucketKey] = bucket
		}
		rl.mutex.Unlock()
	}

	ok, wait := bucket.take(rl.now())
	return ok, wait, nil
}

// Cleanup removes buckets that haven't been used for an hour.
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := rl.now()
	for key, bucket := range rl.buckets {
		bucket.mutex.Lock()
		idle := now.Sub(bucket.lastUsed)
		bucket.mutex.Unlock()
		if idle > time.Hour {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanupRoutine runs Cleanup every 30 minutes until ctx is done.
func (rl *RateLimiter) StartCleanupRoutine(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(30 * time.Minute)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.Cleanup()
			}
		}
	}()
}
