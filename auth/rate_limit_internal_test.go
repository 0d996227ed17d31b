package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterSweepsExpiredBuckets(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(5, time.Minute, WithRateLimiterClock(func() time.Time {
		return now
	}))

	for _, key := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		ok, _ := limiter.Allow(key)
		require.True(t, ok)
	}
	require.Len(t, limiter.buckets, 3)

	now = now.Add(2 * time.Minute)

	ok, _ := limiter.Allow("10.0.0.9")
	require.True(t, ok)

	// The stale windows were dropped on the way in.
	assert.Len(t, limiter.buckets, 1)
}

func TestRateLimiterSweepKeepsLiveBuckets(t *testing.T) {
	now := time.Now()
	limiter := NewRateLimiter(1, time.Minute, WithRateLimiterClock(func() time.Time {
		return now
	}))

	ok, _ := limiter.Allow("10.0.0.1")
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	ok, _ = limiter.Allow("10.0.0.2")
	require.True(t, ok)

	now = now.Add(40 * time.Second)
	ok, _ = limiter.Allow("10.0.0.3")
	require.True(t, ok)

	assert.Len(t, limiter.buckets, 2, "only the elapsed window is gone")

	// The surviving bucket kept its count: its budget is already spent.
	ok, _ = limiter.Allow("10.0.0.2")
	assert.False(t, ok)
}
