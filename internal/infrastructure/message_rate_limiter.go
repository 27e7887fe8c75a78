package infrastructure

import (
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiter keeps one token bucket per key. Buckets idle for longer than
// the expiry are dropped and start full again.
type RateLimiter struct {
	buckets *cache.Cache
	rate    rate.Limit
	burst   int
	expiry  time.Duration
}

// NewRateLimiter allows r events per second with the given burst per key.
func NewRateLimiter(r rate.Limit, burst int) *RateLimiter {
	expiry := 10 * time.Minute
	return &RateLimiter{
		buckets: cache.New(expiry, 5*time.Minute),
		rate:    r,
		burst:   burst,
		expiry:  expiry,
	}
}

func (rl *RateLimiter) limiter(key string) *rate.Limiter {
	if v, ok := rl.buckets.Get(key); ok {
		l := v.(*rate.Limiter)
		rl.buckets.Set(key, l, rl.expiry)
		return l
	}
	l := rate.NewLimiter(rl.rate, rl.burst)
	// Add fails when another request created the bucket first.
	if err := rl.buckets.Add(key, l, rl.expiry); err != nil {
		if v, ok := rl.buckets.Get(key); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

// Allow consumes one token for key if available.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.limiter(key).Allow()
}

// WaitTime returns how long key has to wait for its next token. It does not
// consume one.
func (rl *RateLimiter) WaitTime(key string) time.Duration {
	l := rl.limiter(key)
	missing := 1 - l.Tokens()
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / float64(l.Limit()) * float64(time.Second))
}
