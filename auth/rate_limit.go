package auth

import (
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

type rateWindow struct {
	count   int
	startAt time.Time
}

// RateLimiter enforces a fixed-window request budget per key. Counters
// reset when the window elapses, so a burst right at a window boundary can
// see up to twice the budget; acceptable for credential endpoints where
// the goal is slowing brute force, not precise shaping.
type RateLimiter struct {
	mu        sync.Mutex
	budget    int
	window    time.Duration
	now       func() time.Time
	buckets   map[string]*rateWindow
	lastSweep time.Time
}

// RateLimiterOption configures a RateLimiter
type RateLimiterOption func(*RateLimiter)

// WithRateLimiterClock overrides the time source, used in tests
func WithRateLimiterClock(now func() time.Time) RateLimiterOption {
	return func(r *RateLimiter) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRateLimiter creates a limiter allowing budget requests per window.
func NewRateLimiter(budget int, window time.Duration, opts ...RateLimiterOption) *RateLimiter {
	if budget <= 0 {
		budget = 5
	}

	if window <= 0 {
		window = time.Minute
	}

	r := &RateLimiter{
		budget:  budget,
		window:  window,
		now:     time.Now,
		buckets: map[string]*rateWindow{},
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Allow reports whether the key has budget left in the current window.
// When denied it also returns how long until the window resets.
func (r *RateLimiter) Allow(key string) (bool, time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	r.sweep(now)

	bucket, ok := r.buckets[key]
	if !ok || now.Sub(bucket.startAt) >= r.window {
		r.buckets[key] = &rateWindow{count: 1, startAt: now}
		return true, 0
	}

	if bucket.count < r.budget {
		bucket.count++
		return true, 0
	}

	return false, bucket.startAt.Add(r.window).Sub(now)
}

// sweep drops buckets whose window has elapsed, at most once per window,
// so one-off source addresses do not accumulate for the process lifetime.
// Callers hold the mutex.
func (r *RateLimiter) sweep(now time.Time) {
	if now.Sub(r.lastSweep) < r.window {
		return
	}

	for key, bucket := range r.buckets {
		if now.Sub(bucket.startAt) >= r.window {
			delete(r.buckets, key)
		}
	}

	r.lastSweep = now
}

// Middleware answers 429 with a Retry-After header once the source
// address exhausts its budget.
func (r *RateLimiter) Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ok, retryAfter := r.Allow(c.IP())
		if ok {
			return c.Next()
		}

		seconds := int(math.Ceil(retryAfter.Seconds()))
		if seconds < 1 {
			seconds = 1
		}

		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(seconds))

		return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
			"error":       ErrRateLimited.Error(),
			"kind":        KindRateLimited,
			"retry_after": seconds,
		})
	}
}
