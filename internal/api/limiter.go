package api

import (
	"math"
	"sync"
	"time"

	"salonbook/internal/config"

	"golang.org/x/time/rate"
)

const (
	defaultBurst      = 5
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = 256
)

type clientBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// rateLimiter keeps one token bucket per client key. Buckets idle for
// longer than limiterIdleTTL are dropped on a periodic sweep.
type rateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	limit   rate.Limit
	burst   int
	calls   int
	now     func() time.Time
}

func newRateLimiter(cfg config.APIRateLimitConfig) *rateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = defaultBurst
	}
	return &rateLimiter{
		buckets: make(map[string]*clientBucket),
		limit:   rate.Limit(cfg.RPS),
		burst:   burst,
		now:     time.Now,
	}
}

func (l *rateLimiter) enabled() bool {
	return l.limit > 0
}

// allow takes a token for key. When the bucket is empty it reports how
// long the client should wait before retrying.
func (l *rateLimiter) allow(key string) (bool, time.Duration) {
	if !l.enabled() {
		return true, 0
	}

	now := l.now()
	l.mu.Lock()
	b := l.bucket(key, now)
	l.mu.Unlock()

	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, time.Second
	}
	if delay := r.DelayFrom(now); delay > 0 {
		r.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// bucket must be called with l.mu held.
func (l *rateLimiter) bucket(key string, now time.Time) *clientBucket {
	l.calls++
	if l.calls%limiterSweepEvery == 0 {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &clientBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b
}

func (l *rateLimiter) sweep(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > limiterIdleTTL {
			delete(l.buckets, key)
		}
	}
}

func (l *rateLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// retryAfterSeconds rounds a wait up to whole seconds for the Retry-After header.
func retryAfterSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}
