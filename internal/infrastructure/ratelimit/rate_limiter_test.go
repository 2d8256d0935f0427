package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func newTestLimiter(limits Limits) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)}
	rl := NewRateLimiter(limits)
	rl.now = clock.now
	return rl, clock
}

func TestBucketDrainsAndRefills(t *testing.T) {
	rl, clock := newTestLimiter(Limits{ActionSendMessage: 3})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, _, err := rl.Allow(ctx, "P1", ActionSendMessage)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, wait, err := rl.Allow(ctx, "P1", ActionSendMessage)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 20*time.Second, wait)

	clock.t = clock.t.Add(20 * time.Second)
	ok, _, _ = rl.Allow(ctx, "P1", ActionSendMessage)
	assert.True(t, ok)
}

func TestBucketsAreScopedByKeyAndAction(t *testing.T) {
	rl, _ := newTestLimiter(Limits{ActionSendMessage: 1, ActionCreateThread: 1})
	ctx := context.Background()

	ok, _, _ := rl.Allow(ctx, "P1", ActionSendMessage)
	assert.True(t, ok)
	ok, _, _ = rl.Allow(ctx, "P1", ActionSendMessage)
	assert.False(t, ok)

	ok, _, _ = rl.Allow(ctx, "P2", ActionSendMessage)
	assert.True(t, ok)
	ok, _, _ = rl.Allow(ctx, "P1", ActionCreateThread)
	assert.True(t, ok)
}

func TestUnknownActionUsesDefault(t *testing.T) {
	rl, _ := newTestLimiter(nil)
	ctx := context.Background()

	for i := 0; i < defaultPerMinute; i++ {
		ok, _, _ := rl.Allow(ctx, "T1", "typing")
		require.True(t, ok)
	}
	ok, _, _ := rl.Allow(ctx, "T1", "typing")
	assert.False(t, ok)
}

func TestCleanupDropsIdleBuckets(t *testing.T) {
	rl, clock := newTestLimiter(nil)
	ctx := context.Background()

	rl.Allow(ctx, "T1", ActionSendMessage)
	clock.t = clock.t.Add(2 * time.Hour)
	rl.Allow(ctx, "T2", ActionSendMessage)
	rl.Cleanup()

	assert.Len(t, rl.buckets, 1)
	_, kept := rl.buckets["T2:"+ActionSendMessage]
	assert.True(t, kept)
}
